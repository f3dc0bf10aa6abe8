// Command shopvora is a terminal client for a running Shopvora site: it
// keeps a session, browses the catalog and blog, and talks to the assistant.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/markdave123-py/Shopvora/internal/chat"
	"github.com/markdave123-py/Shopvora/internal/client"
	"github.com/markdave123-py/Shopvora/internal/config"
	"github.com/markdave123-py/Shopvora/internal/logging"
	"github.com/markdave123-py/Shopvora/internal/models"
	"github.com/markdave123-py/Shopvora/internal/session"
)

const usage = `usage: shopvora <command> [flags]

commands:
  login      sign in with -email and -password
  signup     create an account with -email -password -confirm [-name]
  logout     forget the stored session
  whoami     show the signed-in user and role
  products   list the product catalog
  blog       list posts, or show one with -title
  subscribe  join the newsletter with -email
  contact    send a message with -name -email -subject -message
  chat       talk to the skincare assistant
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return nil
	}

	cfg, err := config.LoadClientConfig()
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.LogLevel, true)

	path := cfg.SessionFile
	if path == "" {
		if path, err = client.DefaultSessionPath(); err != nil {
			return err
		}
	}
	api := client.New(cfg, client.NewFileStore(path))

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return login(ctx, api, logger, rest, out)
	case "signup":
		return signup(ctx, api, rest, out)
	case "logout":
		return logout(ctx, api, logger, out)
	case "whoami":
		return whoami(ctx, api, logger, out)
	case "products":
		return products(ctx, api, out)
	case "blog":
		return blog(ctx, api, rest, out)
	case "subscribe":
		return subscribe(ctx, api, rest, out)
	case "contact":
		return contact(ctx, api, rest, out)
	case "chat":
		return chatLoop(ctx, cfg, logger, in, out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// startSession restores the stored session and waits for the role lookup.
func startSession(ctx context.Context, api *client.Client, logger zerolog.Logger) (*session.Manager, session.Snapshot, error) {
	m := session.NewManager(api, api, logging.Component(logger, "session"))
	m.Start(ctx)

	waitCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	snap, err := m.Wait(waitCtx)
	if err != nil {
		m.Close()
		return nil, session.Snapshot{}, err
	}
	return m, snap, nil
}

func login(ctx context.Context, api *client.Client, logger zerolog.Logger, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	m, _, err := startSession(ctx, api, logger)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.SignIn(ctx, *email, *password); err != nil {
		return err
	}
	snap, err := m.Wait(ctx)
	if err != nil {
		return err
	}
	printSnapshot(out, snap)
	return nil
}

func signup(ctx context.Context, api *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("signup", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	confirm := fs.String("confirm", "", "repeat the password")
	name := fs.String("name", "", "display name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := api.SignUp(ctx, *email, *password, *confirm, *name); err != nil {
		return err
	}
	fmt.Fprintf(out, "account created, signed in as %s\n", *email)
	return nil
}

func logout(ctx context.Context, api *client.Client, logger zerolog.Logger, out io.Writer) error {
	m, _, err := startSession(ctx, api, logger)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.SignOut(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "signed out")
	return nil
}

func whoami(ctx context.Context, api *client.Client, logger zerolog.Logger, out io.Writer) error {
	m, snap, err := startSession(ctx, api, logger)
	if err != nil {
		return err
	}
	defer m.Close()
	printSnapshot(out, snap)
	return nil
}

func printSnapshot(out io.Writer, snap session.Snapshot) {
	if snap.User == nil {
		fmt.Fprintln(out, "not signed in")
		return
	}
	name := snap.User.DisplayName
	if name == "" {
		name = snap.User.Email
	}
	fmt.Fprintf(out, "%s <%s> role=%s\n", name, snap.User.Email, snap.Role)
}

func products(ctx context.Context, api *client.Client, out io.Writer) error {
	list, err := api.Products(ctx)
	if err != nil {
		return err
	}
	for _, p := range list {
		fmt.Fprintf(out, "%-10s %-40s %s\n", p.Brand, p.Name, p.Price)
		if link := p.AffiliateLinks["amazon"]; link != "" {
			fmt.Fprintf(out, "%10s %s\n", "", link)
		}
	}
	return nil
}

func blog(ctx context.Context, api *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("blog", flag.ContinueOnError)
	title := fs.String("title", "", "show the post with this exact title")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *title != "" {
		p, err := api.BlogPost(ctx, *title)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n%s · %s · %s\n\n%s\n", p.Title, p.Category, p.Date, p.ReadTime, p.Excerpt)
		return nil
	}

	posts, err := api.BlogPosts(ctx)
	if err != nil {
		return err
	}
	for _, p := range posts {
		fmt.Fprintf(out, "[%s] %s (%s)\n", p.Category, p.Title, p.ReadTime)
	}
	return nil
}

func subscribe(ctx context.Context, api *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("subscribe", flag.ContinueOnError)
	email := fs.String("email", "", "address to subscribe")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := api.JoinNewsletter(ctx, *email, "terminal"); err != nil {
		var ae *client.APIError
		if errors.As(err, &ae) && ae.Status == 409 {
			fmt.Fprintln(out, "already subscribed")
			return nil
		}
		return err
	}
	fmt.Fprintln(out, "subscribed")
	return nil
}

func contact(ctx context.Context, api *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("contact", flag.ContinueOnError)
	var m models.ContactMessage
	fs.StringVar(&m.Name, "name", "", "your name")
	fs.StringVar(&m.Email, "email", "", "reply address")
	fs.StringVar(&m.Subject, "subject", "", "subject")
	fs.StringVar(&m.Message, "message", "", "message body")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := api.SubmitContact(ctx, m); err != nil {
		return err
	}
	fmt.Fprintln(out, "message sent")
	return nil
}

// chatLoop reads one line per turn and prints the reply as it streams.
func chatLoop(ctx context.Context, cfg *config.ClientConfig, logger zerolog.Logger, in io.Reader, out io.Writer) error {
	log := logging.Component(logger, "chat")
	var replyID, printed string
	conv := chat.New(cfg.BaseURL, cfg.APIKey,
		chat.WithTimeout(2*time.Minute),
		chat.WithObserver(func(msgs []chat.Message) {
			last := msgs[len(msgs)-1]
			if last.Role != chat.RoleAssistant {
				return
			}
			if last.ID != replyID {
				replyID, printed = last.ID, ""
			}
			switch {
			case last.Content == printed:
			case strings.HasPrefix(last.Content, printed):
				fmt.Fprint(out, last.Content[len(printed):])
			default:
				// the reply was replaced, e.g. by the apology
				fmt.Fprint(out, "\n"+last.Content)
			}
			printed = last.Content
		}),
	)

	fmt.Fprintln(out, conv.Messages()[0].Content)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "/quit" || line == "/exit" {
			return nil
		}
		if err := conv.Send(ctx, line); err != nil {
			log.Debug().Err(err).Msg("reply failed")
		}
		if line != "" {
			fmt.Fprintln(out)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
