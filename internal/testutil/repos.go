// Package testutil 提供测试共用的内存实现。
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"indialaw-go/internal/model"
	"indialaw-go/internal/repository"

	"github.com/google/uuid"
)

// DocumentRepo 是 repository.DocumentRepository 的内存实现。
type DocumentRepo struct {
	mu    sync.Mutex
	Docs  map[string]*model.Document
	Texts map[string]*model.DocumentText
	// Deleted 记录 DeleteCascade 删除过的文档 ID
	Deleted []string
	// Analyses/QA 非空时 DeleteCascade 会级联清理
	Analyses *AnalysisRepo
	QA       *QARepo
}

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

func NewDocumentRepo() *DocumentRepo {
	return &DocumentRepo{Docs: map[string]*model.Document{}, Texts: map[string]*model.DocumentText{}}
}

func (r *DocumentRepo) Create(_ context.Context, doc *model.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	cp := *doc
	r.Docs[doc.ID] = &cp
	return nil
}

func (r *DocumentRepo) FindByID(_ context.Context, id string) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.Docs[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *DocumentRepo) GetOwned(ctx context.Context, id string, userID uint) (*model.Document, error) {
	d, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.UserID != userID {
		return nil, model.ErrAccessDenied
	}
	return d, nil
}

func (r *DocumentRepo) ListByUser(_ context.Context, userID uint) ([]model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Document, 0)
	for _, d := range r.Docs {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *DocumentRepo) TransitionStatus(_ context.Context, id string, from []model.DocumentStatus, to model.DocumentStatus, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.Docs[id]
	if !ok {
		return fmt.Errorf("document %s: %w", id, model.ErrConflict)
	}
	matched := false
	for _, s := range from {
		if d.Status == s {
			matched = true
			break
		}
	}
	if !matched {
		return fmt.Errorf("document %s not in %v: %w", id, from, model.ErrConflict)
	}
	d.Status = to
	for k, v := range fields {
		switch k {
		case "language":
			d.Language = v.(string)
		case "page_count":
			d.PageCount = v.(int)
		case "analysis_id":
			d.AnalysisID = v.(string)
		case "error_message":
			d.ErrorMessage = v.(string)
		default:
			return fmt.Errorf("unsupported field %q", k)
		}
	}
	d.UpdatedAt = time.Now()
	return nil
}

func (r *DocumentRepo) DeleteCascade(ctx context.Context, id string, userID uint) (*model.Document, error) {
	d, err := r.GetOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	delete(r.Docs, id)
	delete(r.Texts, id)
	r.Deleted = append(r.Deleted, id)
	r.mu.Unlock()
	if r.Analyses != nil {
		r.Analyses.deleteByDocument(id)
	}
	if r.QA != nil {
		r.QA.deleteByDocument(id)
	}
	return d, nil
}

func (r *DocumentRepo) SaveText(_ context.Context, text *model.DocumentText) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *text
	r.Texts[text.DocumentID] = &cp
	return nil
}

func (r *DocumentRepo) FindText(_ context.Context, documentID string) (*model.DocumentText, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.Texts[documentID]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// AnalysisRepo 是 repository.AnalysisRepository 的内存实现，保持插入顺序。
type AnalysisRepo struct {
	mu       sync.Mutex
	Analyses []*model.Analysis
	// CreateErr 非空时 Create 返回该错误
	CreateErr error
}

var _ repository.AnalysisRepository = (*AnalysisRepo)(nil)

func NewAnalysisRepo() *AnalysisRepo { return &AnalysisRepo{} }

func (r *AnalysisRepo) Create(_ context.Context, a *model.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return r.CreateErr
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	cp := *a
	r.Analyses = append(r.Analyses, &cp)
	return nil
}

func (r *AnalysisRepo) Latest(_ context.Context, documentID string) (*model.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.Analyses) - 1; i >= 0; i-- {
		if r.Analyses[i].DocumentID == documentID {
			cp := *r.Analyses[i]
			return &cp, nil
		}
	}
	return nil, model.ErrNotFound
}

func (r *AnalysisRepo) ListByDocument(_ context.Context, documentID string) ([]model.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Analysis, 0)
	for i := len(r.Analyses) - 1; i >= 0; i-- {
		if r.Analyses[i].DocumentID == documentID {
			out = append(out, *r.Analyses[i])
		}
	}
	return out, nil
}

func (r *AnalysisRepo) GetOwned(_ context.Context, id string, userID uint) (*model.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.Analyses {
		if a.ID == id {
			if a.UserID != userID {
				return nil, model.ErrAccessDenied
			}
			cp := *a
			return &cp, nil
		}
	}
	return nil, model.ErrNotFound
}

// Count 返回某文档的分析数量。
func (r *AnalysisRepo) Count(documentID string) int {
	list, _ := r.ListByDocument(context.Background(), documentID)
	return len(list)
}

func (r *AnalysisRepo) deleteByDocument(documentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.Analyses[:0]
	for _, a := range r.Analyses {
		if a.DocumentID != documentID {
			kept = append(kept, a)
		}
	}
	r.Analyses = kept
}

// QARepo 是 repository.QARepository 的内存实现。
type QARepo struct {
	mu       sync.Mutex
	Sessions map[string]*model.QASession
	// AppendErr 非空时 AppendExchange 返回该错误
	AppendErr error
}

var _ repository.QARepository = (*QARepo)(nil)

func NewQARepo() *QARepo { return &QARepo{Sessions: map[string]*model.QASession{}} }

func copySession(s *model.QASession) *model.QASession {
	cp := *s
	cp.Messages = append([]model.ChatMessage{}, s.Messages...)
	return &cp
}

func (r *QARepo) GetOrCreate(_ context.Context, documentID string, userID uint) (*model.QASession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.Sessions {
		if s.DocumentID == documentID && s.UserID == userID {
			return copySession(s), nil
		}
	}
	s := &model.QASession{ID: uuid.NewString(), DocumentID: documentID, UserID: userID, Messages: []model.ChatMessage{}, CreatedAt: time.Now()}
	r.Sessions[s.ID] = s
	return copySession(s), nil
}

func (r *QARepo) FindSession(_ context.Context, sessionID, documentID string, userID uint) (*model.QASession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.Sessions[sessionID]
	if !ok || s.DocumentID != documentID || s.UserID != userID {
		return nil, model.ErrNotFound
	}
	return copySession(s), nil
}

func (r *QARepo) AppendExchange(_ context.Context, sessionID string, messages ...model.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.AppendErr != nil {
		return r.AppendErr
	}
	s, ok := r.Sessions[sessionID]
	if !ok {
		return model.ErrNotFound
	}
	for _, m := range messages {
		m.SessionID = sessionID
		m.Seq = len(s.Messages) + 1
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		s.Messages = append(s.Messages, m)
	}
	return nil
}

// MessageCount 返回 (文档, 用户) 会话中的消息数，会话不存在时为 0。
func (r *QARepo) MessageCount(documentID string, userID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.Sessions {
		if s.DocumentID == documentID && s.UserID == userID {
			return len(s.Messages)
		}
	}
	return 0
}

func (r *QARepo) deleteByDocument(documentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.Sessions {
		if s.DocumentID == documentID {
			delete(r.Sessions, id)
		}
	}
}

// UserRepo 是 repository.UserRepository 的内存实现。
type UserRepo struct {
	mu     sync.Mutex
	nextID uint
	Users  map[uint]*model.User
}

var _ repository.UserRepository = (*UserRepo)(nil)

func NewUserRepo() *UserRepo { return &UserRepo{Users: map[uint]*model.User{}} }

func (r *UserRepo) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.Users {
		if existing.Username == u.Username {
			return fmt.Errorf("duplicate username %s", u.Username)
		}
	}
	r.nextID++
	u.ID = r.nextID
	cp := *u
	r.Users[u.ID] = &cp
	return nil
}

func (r *UserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.Users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, model.ErrNotFound
}

func (r *UserRepo) FindByID(_ context.Context, id uint) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.Users[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// KnowledgeSourceRepo 是 repository.KnowledgeSourceRepository 的内存实现。
type KnowledgeSourceRepo struct {
	mu      sync.Mutex
	Sources map[string]*model.KnowledgeSource
}

var _ repository.KnowledgeSourceRepository = (*KnowledgeSourceRepo)(nil)

func NewKnowledgeSourceRepo() *KnowledgeSourceRepo {
	return &KnowledgeSourceRepo{Sources: map[string]*model.KnowledgeSource{}}
}

func (r *KnowledgeSourceRepo) FindByMD5(_ context.Context, fileMD5 string) (*model.KnowledgeSource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.Sources[fileMD5]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *KnowledgeSourceRepo) Create(_ context.Context, s *model.KnowledgeSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.Sources[s.FileMD5] = &cp
	return nil
}
