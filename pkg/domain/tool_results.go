package domain

type Job struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Company        string   `json:"company"`
	Location       string   `json:"location"`
	Qualifications []string `json:"qualifications"`
	Link           string   `json:"link"`
	Thumbnail      string   `json:"thumbnail"`
}

type JobSearchResult struct {
	Query   string `json:"query"`
	Count   int    `json:"count"`
	Jobs    []Job  `json:"jobs"`
	Message string `json:"message,omitempty"`
}

type SalaryResult struct {
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
	Source  string `json:"source"`
}

type VideoResult struct {
	VideoID   string `json:"videoId,omitempty"`
	Title     string `json:"title,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Message   string `json:"message,omitempty"`
}

type BookResult struct {
	Note            string   `json:"ai_res,omitempty"`
	BookTitle       string   `json:"bookTitle"`
	Authors         []string `json:"authors"`
	BookDescription string   `json:"bookDescription"`
	BookThumbnail   string   `json:"bookThumbnail"`
	BookLink        string   `json:"bookLink"`
}
