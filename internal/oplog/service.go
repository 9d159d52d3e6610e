package oplog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/elskow/assessgate/internal/auth"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var ErrInvalidPayload = errors.New("data must be valid JSON")

// AccountLookup resolves the authenticated username to its account.
type AccountLookup interface {
	Profile(ctx context.Context, username string) (*auth.Account, error)
}

type Entry struct {
	SubmitID      *uint
	OpTime        time.Time
	OpType        string
	OpObject      string
	ObjectNo      string
	ObjectName    string
	DataBefore    json.RawMessage
	DataAfter     json.RawMessage
	VoiceURL      string
	ScreenshotURL string
}

type Service struct {
	repo     Repository
	accounts AccountLookup
	log      *zap.Logger
	now      func() time.Time
}

func NewService(repo Repository, accounts AccountLookup, log *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		log:      log,
		now:      time.Now,
	}
}

func (s *Service) Save(ctx context.Context, username string, e Entry) (*OperationLog, error) {
	account, err := s.accounts.Profile(ctx, username)
	if err != nil {
		return nil, err
	}

	before, err := rawJSON(e.DataBefore)
	if err != nil {
		return nil, err
	}
	after, err := rawJSON(e.DataAfter)
	if err != nil {
		return nil, err
	}

	opTime := e.OpTime
	if opTime.IsZero() {
		opTime = s.now()
	}

	entry := &OperationLog{
		UID:           account.ID,
		SubmitID:      e.SubmitID,
		OpTime:        opTime.UTC(),
		OpType:        e.OpType,
		OpObject:      e.OpObject,
		ObjectNo:      e.ObjectNo,
		ObjectName:    e.ObjectName,
		DataBefore:    before,
		DataAfter:     after,
		VoiceURL:      e.VoiceURL,
		ScreenshotURL: e.ScreenshotURL,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to save operation log: %w", err)
	}

	s.log.Debug("operation logged",
		zap.Uint("uid", account.ID),
		zap.String("op_type", e.OpType))
	return entry, nil
}

// List returns one page of the caller's logs, newest first. Pages start at 1.
func (s *Service) List(ctx context.Context, username string, page, size int) ([]OperationLog, error) {
	account, err := s.accounts.Profile(ctx, username)
	if err != nil {
		return nil, err
	}

	page, size = normalizePage(page, size)
	entries, err := s.repo.ListByUID(ctx, account.ID, size, (page-1)*size)
	if err != nil {
		return nil, fmt.Errorf("failed to list operation logs: %w", err)
	}
	return entries, nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

// rawJSON treats an absent value and JSON null alike.
func rawJSON(msg json.RawMessage) (*string, error) {
	if len(msg) == 0 || string(msg) == "null" {
		return nil, nil
	}
	if !json.Valid(msg) {
		return nil, ErrInvalidPayload
	}
	s := string(msg)
	return &s, nil
}
