package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/caarlos0/env/v9"
	_ "github.com/joho/godotenv/autoload"

	"github.com/lennythecreator/sphinx/pkg/advisor"
	"github.com/lennythecreator/sphinx/pkg/attachment"
	"github.com/lennythecreator/sphinx/pkg/completion"
	"github.com/lennythecreator/sphinx/pkg/database"
	"github.com/lennythecreator/sphinx/pkg/domain"
	"github.com/lennythecreator/sphinx/pkg/logger"
	"github.com/lennythecreator/sphinx/pkg/render"
	"github.com/lennythecreator/sphinx/pkg/repository"
	"github.com/lennythecreator/sphinx/pkg/session"
)

type Config struct {
	ServerURL string `env:"SPHINX_SERVER_URL" envDefault:"http://localhost:8080"`
	Token     string `env:"SPHINX_TOKEN"`
	StatePath string `env:"SPHINX_STATE_PATH" envDefault:"sphinx.db"`
}

const councilKey = "council"

var councilAdvisor = domain.Advisor{
	ID:     councilKey,
	Role:   "Project Council",
	Domain: "project planning",
}

type app struct {
	cfg       Config
	registry  *advisor.Registry
	store     *repository.ConversationStore
	pipeline  *attachment.Pipeline
	histories map[string][]domain.Message
	sess      *session.Session

	// busy tracks the in-flight submit goroutine; unmount waits on it so a
	// finishing turn never renders against, or saves into, the next session.
	busy sync.WaitGroup

	mu   sync.Mutex
	jobs *render.Carousel
}

func main() {
	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, &logger.Options{
		Level:   slog.LevelWarn,
		NoColor: false,
	})))

	if err := runMain(); err != nil {
		slog.Error("exiting due to error", logger.Err(err))
		os.Exit(1)
	}
}

func runMain() error {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parsing env config: %w", err)
	}

	ctx := context.Background()

	db, err := database.NewSQLite(cfg.StatePath)
	if err != nil {
		return fmt.Errorf("opening state db: %w", err)
	}
	defer db.Close()

	store := repository.NewConversationStore(db)
	activeID, histories, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading conversation state: %w", err)
	}

	a := &app{
		cfg:       cfg,
		registry:  advisor.NewRegistry(),
		store:     store,
		pipeline:  attachment.NewPipeline(attachment.NewFitzRasterizer()),
		histories: histories,
	}

	current, ok := a.registry.Get(activeID)
	if !ok {
		current = a.registry.All()[0]
	}
	a.mount(ctx, current)

	return a.loop(ctx)
}

// mount tears down the current session and brings up one for the advisor,
// replaying its stored history.
func (a *app) mount(ctx context.Context, adv domain.Advisor) {
	a.unmount()

	endpoint := a.cfg.ServerURL + "/api/chat"
	opts := []session.Option{session.WithEventObserver(paintEvent)}
	if adv.ID == councilKey {
		endpoint = a.cfg.ServerURL + "/api/projects"
		opts = append(opts, session.WithCompletionMarker(domain.CouncilCompletionMarker))
	}

	client := completion.NewClient(endpoint, a.cfg.Token)
	a.sess = session.New(adv, client, a.store, a.histories[adv.ID], opts...)

	if err := a.store.SaveActiveAdvisor(ctx, adv.ID); err != nil {
		slog.Warn("saving active advisor", logger.Err(err))
	}

	fmt.Printf("\n-- %s (%s) --\n", adv.Role, adv.Domain)
	for _, m := range tail(a.sess.Messages(), 4) {
		a.printMessage(m)
	}
}

func (a *app) unmount() {
	if a.sess == nil {
		return
	}
	a.sess.Stop()
	a.busy.Wait()
	a.histories[a.sess.Advisor().ID] = a.sess.Messages()
	a.sess = nil
}

func (a *app) loop(ctx context.Context) error {
	fmt.Println(`Type a message, or :help for commands.`)

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !in.Scan() {
			break
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ":") {
			if quit := a.command(ctx, line); quit {
				break
			}
			continue
		}

		a.submit(ctx, line)
	}

	a.unmount()
	return in.Err()
}

// command runs one colon command and reports whether the client should exit.
func (a *app) command(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case ":help":
		fmt.Println(`:advisors            list advisors
:advisor <id>        switch advisor
:council             open the project council
:attach <path>       attach a PDF to the next message
:detach              drop the pending attachment
:delete <id>         delete a message
:next / :prev        page through the latest job results
:stop                stop the in-flight response
:export <path>       export the transcript as HTML
:quit                exit`)
	case ":advisors":
		for _, adv := range a.registry.All() {
			fmt.Printf("  %-26s %s (%s)\n", adv.ID, adv.Role, adv.Domain)
		}
	case ":advisor":
		adv, ok := a.registry.Get(arg)
		if !ok {
			fmt.Printf("unknown advisor %q, see :advisors\n", arg)
			return false
		}
		a.mount(ctx, adv)
	case ":council":
		a.mount(ctx, councilAdvisor)
	case ":attach":
		a.attach(arg)
	case ":detach":
		a.sess.RemoveAttachment()
	case ":delete":
		a.sess.Delete(ctx, arg)
	case ":next":
		a.pageJobs((*render.Carousel).Next)
	case ":prev":
		a.pageJobs((*render.Carousel).Prev)
	case ":stop":
		a.sess.Stop()
	case ":export":
		a.export(arg)
	case ":quit":
		return true
	default:
		fmt.Printf("unknown command %q, see :help\n", cmd)
	}
	return false
}

func (a *app) submit(ctx context.Context, text string) {
	sess := a.sess
	a.busy.Add(1)
	go func() {
		defer a.busy.Done()
		err := sess.Submit(ctx, text)
		switch err {
		case nil:
			msgs := sess.Messages()
			if len(msgs) > 0 {
				a.printRecords(render.RenderAll(msgs[len(msgs)-1]))
			}
			fmt.Print("\n> ")
		case domain.ErrSessionBusy:
			fmt.Println("The advisor is still responding. Use :stop to interrupt.")
		case domain.ErrSessionComplete:
			fmt.Println("This project plan is complete. Start a new council conversation to plan another project.")
		case domain.ErrAttachmentProcessing:
			fmt.Println("Please wait for the file to finish processing.")
		case domain.ErrEmptySubmission:
			// Nothing to send.
		default:
			fmt.Printf("sending message: %v\n", err)
		}
	}()
}

func (a *app) attach(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("reading %s: %v\n", path, err)
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	upload := a.pipeline.Submit(filepath.Base(path), contentType, data)
	a.sess.Attach(upload)

	go func() {
		info, err := upload.Wait(context.Background())
		if err != nil {
			return
		}
		if info.Status == domain.AttachmentError {
			fmt.Printf("\n%s: %s\n> ", info.Name, info.Message)
			return
		}
		fmt.Printf("\n%s ready (%d pages)\n> ", info.Name, info.Pages)
	}()
}

func (a *app) export(path string) {
	if path == "" {
		fmt.Println("usage: :export <path>")
		return
	}
	html := render.TranscriptHTML(a.sess.Advisor(), a.sess.Messages())
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		fmt.Printf("writing %s: %v\n", path, err)
		return
	}
	fmt.Printf("transcript written to %s\n", path)
}

// paintEvent prints streamed parts as they are applied to the transcript.
func paintEvent(ev domain.StreamEvent) {
	switch ev.Type {
	case domain.StreamEventText:
		fmt.Print(ev.Text)
	case domain.StreamEventToolCall:
		fmt.Printf("\n[%s…]", ev.ToolCall.ToolName)
	case domain.StreamEventError:
		fmt.Printf("\n[error: %s]", ev.Err)
	case domain.StreamEventFinish:
		fmt.Println()
	}
}

func (a *app) printMessage(m domain.Message) {
	switch m.Role {
	case domain.RoleUser:
		fmt.Printf("you: %s\n", m.Content)
		if m.AttachmentMeta != nil {
			fmt.Printf("     [attached %s, %d pages]\n", m.AttachmentMeta.Name, m.AttachmentMeta.PageCount)
		}
	case domain.RoleAssistant:
		fmt.Printf("%s\n", m.Content)
		a.printRecords(render.RenderAll(m))
	}
}

func (a *app) printRecords(records []render.DisplayRecord) {
	for _, rec := range records {
		switch rec.Kind {
		case render.KindJobCarousel:
			a.mu.Lock()
			if a.jobs == nil {
				a.jobs = render.NewCarousel(rec.Jobs)
			} else {
				a.jobs.SetJobs(rec.Jobs)
			}
			a.mu.Unlock()
			a.printActiveJob()
		case render.KindSalary:
			fmt.Println(rec.Salary.Message)
		case render.KindVideo:
			fmt.Printf("video: %s\n       https://www.youtube.com/watch?v=%s\n", rec.Video.Title, rec.Video.VideoID)
		case render.KindBook:
			fmt.Printf("book: %s by %s\n", rec.Book.BookTitle, strings.Join(rec.Book.Authors, ", "))
			if rec.Book.BookLink != "" {
				fmt.Printf("      %s\n", rec.Book.BookLink)
			}
		case render.KindNotice:
			fmt.Println(rec.Notice)
		}
	}
}

func (a *app) pageJobs(move func(*render.Carousel)) {
	a.mu.Lock()
	if a.jobs == nil || a.jobs.Len() == 0 {
		a.mu.Unlock()
		fmt.Println("no job results yet")
		return
	}
	move(a.jobs)
	a.mu.Unlock()
	a.printActiveJob()
}

func (a *app) printActiveJob() {
	a.mu.Lock()
	job, ok := a.jobs.Active()
	pos, total := a.jobs.ActiveIndex()+1, a.jobs.Len()
	a.mu.Unlock()
	if !ok {
		return
	}
	fmt.Printf("job %d of %d: %s\n", pos, total, job.Title)
	fmt.Printf("  %s, %s\n", job.Company, job.Location)
	if len(job.Qualifications) > 0 {
		fmt.Printf("  qualifications: %s\n", strings.Join(job.Qualifications, "; "))
	}
	if job.Link != "" {
		fmt.Printf("  %s\n", job.Link)
	}
	if total > 1 {
		fmt.Println("  (:next / :prev to browse)")
	}
}

func tail(messages []domain.Message, n int) []domain.Message {
	if len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}
