// Package cli is the interactive terminal frontend. It renders whatever the
// conversation service returns and owns all retry-on-command and prompt
// logic; the sync layer below it stays UI-free.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kornilov-ux/MyMessenger/internal/config"
	"github.com/kornilov-ux/MyMessenger/internal/identity"
	"github.com/kornilov-ux/MyMessenger/internal/index"
	"github.com/kornilov-ux/MyMessenger/internal/keyx"
	"github.com/kornilov-ux/MyMessenger/internal/logging"
	"github.com/kornilov-ux/MyMessenger/internal/models"
	"github.com/kornilov-ux/MyMessenger/internal/msglog"
	"github.com/kornilov-ux/MyMessenger/internal/services"
	"github.com/kornilov-ux/MyMessenger/internal/store"
	"github.com/kornilov-ux/MyMessenger/internal/store/rest"
	"github.com/kornilov-ux/MyMessenger/internal/users"
)

// App wires the configuration to the service layer and executes REPL
// commands.
type App struct {
	config        *config.Config
	conversations services.ConversationService
	directory     *users.Directory
	store         store.Store
	reader        *bufio.Reader
}

// NewApp builds the client from config. The auth secret is prompted for when
// the config leaves it empty.
func NewApp(c *config.Config) (*App, error) {
	if c.Email == "" {
		return nil, errors.New("no user email configured (use -e)")
	}

	secret := c.AuthSecret
	if secret == "" {
		var err error
		if secret, err = GetSecret(os.Stdout); err != nil {
			return nil, fmt.Errorf("reading auth secret: %w", err)
		}
	}

	log := logging.Default()
	tokens := identity.NewTokenSource(secret, keyx.UserKey(c.Email), c.TokenTTL)
	st := rest.New(c.StoreEndpointURL,
		rest.WithTokenSource(tokens),
		rest.WithLogger(log),
		rest.WithObserveBackoff(c.ObserveBackoffMin, c.ObserveBackoffMax),
	)

	who := identity.Static{User: identity.User{Email: c.Email, DisplayName: c.DisplayName}}
	ix := index.New(st, log)
	logs := msglog.New(st, log)

	return &App{
		config:        c,
		conversations: services.NewConversationService(who, ix, logs, log),
		directory:     users.New(st, log),
		store:         st,
		reader:        bufio.NewReader(os.Stdin),
	}, nil
}

// Close releases the store client.
func (app *App) Close() error {
	return app.store.Close()
}

func (app *App) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, app.config.RequestTimeout)
}

// Register creates the current user's account node and directory entry.
func (app *App) Register(ctx context.Context) error {
	first, err := GetSimpleText(app.reader, "First name", os.Stdout)
	if err != nil {
		return err
	}
	last, err := GetSimpleText(app.reader, "Last name", os.Stdout)
	if err != nil {
		return err
	}

	opCtx, cancel := app.opCtx(ctx)
	defer cancel()
	err = app.directory.Insert(opCtx, models.User{
		FirstName: first,
		LastName:  last,
		Email:     app.config.Email,
	})
	if errors.Is(err, users.ErrUserExists) {
		fmt.Println("Account already exists.")
		return nil
	}
	if err != nil {
		fmt.Println("Registration failed:", err)
		return err
	}
	fmt.Println("Registered.")
	return nil
}

// Users searches the directory by name prefix.
func (app *App) Users(ctx context.Context, term string) error {
	opCtx, cancel := app.opCtx(ctx)
	defer cancel()

	results, err := app.directory.SearchByPrefix(opCtx, term, app.config.Email)
	if err != nil {
		fmt.Println("Search failed:", err)
		return err
	}
	if len(results) == 0 {
		fmt.Println("No users found.")
		return nil
	}
	for _, u := range results {
		fmt.Printf("  %s <%s>\n", u.Name, u.Email)
	}
	return nil
}

// Conversations prints the current conversation list.
func (app *App) Conversations(ctx context.Context) error {
	opCtx, cancel := app.opCtx(ctx)
	defer cancel()

	ch, err := app.conversations.Conversations(opCtx)
	if err != nil {
		fmt.Println("Listing failed:", err)
		return err
	}
	summaries, ok := <-ch
	if !ok {
		fmt.Println("Listing failed: stream closed")
		return store.ErrFetchFailed
	}
	cancel()

	if len(summaries) == 0 {
		fmt.Println("No conversations yet.")
		return nil
	}
	for _, s := range summaries {
		fmt.Printf("  %s  %s: %s (%s)\n", s.ID, s.DisplayName, s.Latest.Text, s.Latest.DateString)
	}
	return nil
}

// Open prints a conversation's full message log.
func (app *App) Open(ctx context.Context, convID string) error {
	opCtx, cancel := app.opCtx(ctx)
	defer cancel()

	ch, err := app.conversations.Messages(opCtx, convID)
	if err != nil {
		fmt.Println("Reading failed:", err)
		return err
	}
	messages, ok := <-ch
	if !ok {
		fmt.Println("Reading failed: stream closed")
		return store.ErrFetchFailed
	}
	cancel()

	if len(messages) == 0 {
		fmt.Println("No messages.")
		return nil
	}
	for _, m := range messages {
		text := ""
		if k, isText := m.Kind.(models.TextKind); isText {
			text = k.Text
		}
		fmt.Printf("  [%s] %s: %s\n", m.SentAt.Format("15:04:05"), m.SenderName, text)
	}
	return nil
}

// Send appends a text message to an existing conversation.
func (app *App) Send(ctx context.Context, convID, text string) error {
	opCtx, cancel := app.opCtx(ctx)
	defer cancel()

	if err := app.conversations.Send(opCtx, convID, models.TextKind{Text: text}); err != nil {
		fmt.Println("Send failed (state may be inconsistent, retry):", err)
		return err
	}
	fmt.Println("Sent.")
	return nil
}

// New starts a conversation with email, reusing an existing one when the
// recipient already messaged the current user.
func (app *App) New(ctx context.Context, email, name, text string) error {
	opCtx, cancel := app.opCtx(ctx)
	defer cancel()

	if convID, err := app.conversations.Exists(opCtx, email); err == nil {
		fmt.Println("Conversation already exists, sending there:", convID)
		return app.Send(ctx, convID, text)
	} else if !errors.Is(err, index.ErrNotFound) {
		fmt.Println("Lookup failed:", err)
		return err
	}

	convID, err := app.conversations.Start(opCtx, email, name, models.TextKind{Text: text})
	if err != nil {
		fmt.Println("Start failed (state may be inconsistent, retry):", err)
		return err
	}
	fmt.Println("Started", convID)
	return nil
}

// Main runs the read-eval-print loop until EOF or quit.
func (app *App) Main(ctx context.Context) {
	fmt.Println("MyMessenger CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("messenger %s > ", app.config.Email)
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			fmt.Println("Available commands: register, users <term>, (c)onversations, open <id>, send <id> <text>, new <email> <name> <text>, exit")

		case "register":
			_ = app.Register(ctx)

		case "users":
			term := ""
			if len(args) > 0 {
				term = args[0]
			}
			_ = app.Users(ctx, term)

		case "c", "conversations":
			_ = app.Conversations(ctx)

		case "open":
			if len(args) != 1 {
				fmt.Println("Usage: open <conversation-id>")
				continue
			}
			_ = app.Open(ctx, args[0])

		case "send":
			if len(args) < 2 {
				fmt.Println("Usage: send <conversation-id> <text>")
				continue
			}
			_ = app.Send(ctx, args[0], strings.Join(args[1:], " "))

		case "new":
			if len(args) < 3 {
				fmt.Println("Usage: new <email> <name> <text>")
				continue
			}
			_ = app.New(ctx, args[0], args[1], strings.Join(args[2:], " "))

		case "exit", "quit":
			fmt.Println("Bye!")
			return

		default:
			fmt.Println("Unknown command:", cmd)
		}
	}
}
