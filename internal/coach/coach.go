// Package coach implements the chat-based financial coach: it turns a user's
// message, prior turns and financial context into a single model request and
// optionally records the exchange.
package coach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"finance-coach-backend/internal/finance"
	"finance-coach-backend/internal/models"
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrEmptyReply   = errors.New("model returned an empty reply")
	ErrNoStore      = errors.New("no storage configured")
	ErrUnavailable  = errors.New("coach is not configured")
)

const (
	// Number of transactions listed in the system prompt.
	promptTransactionLimit = 10
	// Number of transactions loaded for advice.
	adviceTransactionLimit = 100

	DefaultTimeout    = 30 * time.Second
	DefaultMaxHistory = 20
)

// Turn is one message of a conversation as sent to the model
type Turn struct {
	Role    models.ChatRole `json:"role"`
	Content string          `json:"content"`
}

// ChatContext is the financial data the client shows alongside the chat
type ChatContext struct {
	Accounts           []models.Account     `json:"accounts"`
	RecentTransactions []models.Transaction `json:"recent_transactions"`
}

// contextTransaction is a transaction as clients send it in a chat context,
// where the date may be a calendar day or RFC3339.
type contextTransaction struct {
	models.Transaction
	Date string `json:"date"`
}

func (c *ChatContext) UnmarshalJSON(data []byte) error {
	var raw struct {
		Accounts           []models.Account     `json:"accounts"`
		RecentTransactions []contextTransaction `json:"recent_transactions"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var txs []models.Transaction
	if raw.RecentTransactions != nil {
		txs = make([]models.Transaction, 0, len(raw.RecentTransactions))
	}
	for i, rt := range raw.RecentTransactions {
		t := rt.Transaction
		if rt.Date != "" {
			d, err := models.ParseDate(rt.Date)
			if err != nil {
				return fmt.Errorf("recent_transactions[%d].date: %w", i, err)
			}
			t.Date = d
		}
		txs = append(txs, t)
	}

	c.Accounts = raw.Accounts
	c.RecentTransactions = txs
	return nil
}

// ChatRequest is the body accepted by the chat endpoint
type ChatRequest struct {
	Message string      `json:"message"`
	Context ChatContext `json:"context"`
	History []Turn      `json:"history"`
}

// Advice is the result of Advise
type Advice struct {
	Advice   string           `json:"advice"`
	Snapshot finance.Snapshot `json:"snapshot"`
}

// Completer produces the assistant's reply for a conversation.
type Completer interface {
	Complete(ctx context.Context, system string, turns []Turn) (string, error)
}

// Store is the persistence the coach needs.
type Store interface {
	SaveChatMessage(ctx context.Context, m models.ChatMessage) (*models.ChatMessage, error)
	ListAccounts(ctx context.Context, userID string) ([]models.Account, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]models.Transaction, error)
}

type Options struct {
	Timeout    time.Duration
	MaxHistory int
}

type Service struct {
	completer  Completer
	store      Store
	log        zerolog.Logger
	timeout    time.Duration
	maxHistory int
}

// NewService builds a coach. store may be nil, in which case nothing is
// persisted and Advise is unavailable.
func NewService(completer Completer, store Store, opts Options, log zerolog.Logger) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = DefaultMaxHistory
	}
	return &Service{
		completer:  completer,
		store:      store,
		log:        log.With().Str("component", "coach").Logger(),
		timeout:    opts.Timeout,
		maxHistory: opts.MaxHistory,
	}
}

// Chat answers message given the client-supplied context and history. When
// userID is set the user message and the reply are saved; a failed save is
// logged and does not fail the chat.
func (s *Service) Chat(ctx context.Context, userID string, req ChatRequest) (string, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return "", ErrEmptyMessage
	}

	snapshot := finance.Summarize(req.Context.Accounts, req.Context.RecentTransactions)
	turns := append(trimHistory(req.History, s.maxHistory-1), Turn{Role: models.RoleUser, Content: message})
	system := SystemPrompt(snapshot, req.Context.RecentTransactions)

	reply, err := s.complete(ctx, system, turns)
	if err != nil {
		return "", err
	}

	if userID != "" && s.store != nil {
		s.persist(ctx, userID, message, reply)
	}
	return reply, nil
}

// Advise loads the user's stored accounts and transactions and asks the
// model for concrete suggestions.
func (s *Service) Advise(ctx context.Context, userID string) (*Advice, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}

	var (
		accounts     []models.Account
		transactions []models.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accounts, err = s.store.ListAccounts(gctx, userID)
		if err != nil {
			return fmt.Errorf("load accounts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		transactions, err = s.store.ListTransactions(gctx, userID, adviceTransactionLimit)
		if err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snapshot := finance.Summarize(accounts, transactions)
	turns := []Turn{{Role: models.RoleUser, Content: advicePrompt}}
	reply, err := s.complete(ctx, SystemPrompt(snapshot, transactions), turns)
	if err != nil {
		return nil, err
	}
	return &Advice{Advice: reply, Snapshot: snapshot}, nil
}

func (s *Service) complete(ctx context.Context, system string, turns []Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	reply, err := s.completer.Complete(ctx, system, turns)
	if err != nil {
		return "", fmt.Errorf("complete chat: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", ErrEmptyReply
	}
	s.log.Debug().Int("turns", len(turns)).Dur("duration", time.Since(start)).Msg("Coach reply generated")
	return reply, nil
}

func (s *Service) persist(ctx context.Context, userID, message, reply string) {
	for _, m := range []models.ChatMessage{
		{UserID: userID, Role: models.RoleUser, Content: message},
		{UserID: userID, Role: models.RoleAssistant, Content: reply},
	} {
		if _, err := s.store.SaveChatMessage(ctx, m); err != nil {
			s.log.Error().Err(err).Str("user_id", userID).Str("role", string(m.Role)).Msg("Failed to save chat message")
			return
		}
	}
}

// trimHistory drops turns with unknown roles or no content and keeps at most
// the last max turns.
func trimHistory(history []Turn, max int) []Turn {
	out := make([]Turn, 0, len(history)+1)
	for _, t := range history {
		if !t.Role.Valid() || strings.TrimSpace(t.Content) == "" {
			continue
		}
		out = append(out, t)
	}
	if max < 0 {
		max = 0
	}
	if len(out) > max {
		out = out[len(out)-max:]
	}
	return out
}

// Unavailable is the Completer used when no model is configured.
type Unavailable struct{}

func (Unavailable) Complete(context.Context, string, []Turn) (string, error) {
	return "", ErrUnavailable
}
