package render

import "github.com/lennythecreator/sphinx/pkg/domain"

// Carousel pages through a job list one item at a time. The active index is
// always clamped to [0, len-1]; Prev and Next saturate instead of wrapping.
type Carousel struct {
	jobs   []domain.Job
	active int
}

func NewCarousel(jobs []domain.Job) *Carousel {
	return &Carousel{jobs: jobs}
}

func (c *Carousel) Len() int { return len(c.jobs) }

func (c *Carousel) ActiveIndex() int { return c.active }

func (c *Carousel) Active() (domain.Job, bool) {
	if len(c.jobs) == 0 {
		return domain.Job{}, false
	}
	return c.jobs[c.active], true
}

func (c *Carousel) Next() {
	c.active++
	c.clamp()
}

func (c *Carousel) Prev() {
	c.active--
	c.clamp()
}

// SetJobs replaces the job list, re-clamping the active index so a shrunken
// list never leaves it pointing past the end.
func (c *Carousel) SetJobs(jobs []domain.Job) {
	c.jobs = jobs
	c.clamp()
}

func (c *Carousel) clamp() {
	if c.active < 0 {
		c.active = 0
	}
	if max := len(c.jobs) - 1; c.active > max {
		if max < 0 {
			max = 0
		}
		c.active = max
	}
}
