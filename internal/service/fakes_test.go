package service

import (
	"context"
	"time"

	"vidiooh/internal/model"
	"vidiooh/internal/repository"
)

// Shared in-memory test doubles for the repository and storage surfaces.

type fakeConversionRepo struct {
	logs      []model.ConversionLog
	nextID    int
	countErr  error
	insertErr error
	sweepErr  error
	deleted   []string
}

func (f *fakeConversionRepo) Insert(ctx context.Context, log *model.ConversionLog) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.nextID++
	log.ID = "log-" + time.Now().Format("150405") + "-" + string(rune('a'+f.nextID))
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	f.logs = append(f.logs, *log)
	return nil
}

func (f *fakeConversionRepo) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	count := 0
	for _, l := range f.logs {
		if l.UserID == userID && l.DeletedAt == nil && !l.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeConversionRepo) ListActive(ctx context.Context, userID string, limit, offset int) ([]model.ConversionLog, error) {
	var out []model.ConversionLog
	for _, l := range f.logs {
		if l.UserID == userID && l.DeletedAt == nil {
			out = append(out, l)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeConversionRepo) GetByID(ctx context.Context, id string) (*model.ConversionLog, error) {
	for i := range f.logs {
		if f.logs[i].ID == id {
			l := f.logs[i]
			return &l, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeConversionRepo) MarkDeleted(ctx context.Context, id string, at time.Time) error {
	for i := range f.logs {
		if f.logs[i].ID == id && f.logs[i].DeletedAt == nil {
			t := at
			f.logs[i].DeletedAt = &t
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeConversionRepo) Aggregate(ctx context.Context, userID string) (int, int64, int, error) {
	videos, stored := 0, 0
	var bytes int64
	for _, l := range f.logs {
		if l.UserID != userID {
			continue
		}
		videos++
		bytes += l.FileSize
		if l.FilePath != nil {
			stored++
		}
	}
	return videos, bytes, stored, nil
}

func (f *fakeConversionRepo) SweepBefore(ctx context.Context, cutoff time.Time, ephemeralPlans []string) ([]model.ConversionLog, error) {
	if f.sweepErr != nil {
		return nil, f.sweepErr
	}
	var out []model.ConversionLog
	for _, l := range f.logs {
		if l.CreatedAt.Before(cutoff) && l.FilePath != nil {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeConversionRepo) HardDelete(ctx context.Context, ids []string) error {
	f.deleted = append(f.deleted, ids...)
	var kept []model.ConversionLog
	for _, l := range f.logs {
		remove := false
		for _, id := range ids {
			if l.ID == id {
				remove = true
				break
			}
		}
		if !remove {
			kept = append(kept, l)
		}
	}
	f.logs = kept
	return nil
}

type fakeAccountRepo struct {
	accounts   map[string]*model.Account
	teams      map[string]*model.Team
	accountErr error
	teamErr    error
	downErr    error
	downgraded []string
}

func (f *fakeAccountRepo) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	a, ok := f.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *a
	return &copy, nil
}

func (f *fakeAccountRepo) GetTeam(ctx context.Context, id string) (*model.Team, error) {
	if f.teamErr != nil {
		return nil, f.teamErr
	}
	t, ok := f.teams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *t
	return &copy, nil
}

func (f *fakeAccountRepo) DowngradeToFree(ctx context.Context, accountID string) error {
	if f.downErr != nil {
		return f.downErr
	}
	f.downgraded = append(f.downgraded, accountID)
	if a, ok := f.accounts[accountID]; ok {
		a.PlanType = model.PlanFree
		a.TrialEndsAt = nil
		a.PlanExpiresAt = nil
	}
	return nil
}

type fakeObjectStore struct {
	uploads   map[string][]byte
	uploadErr error
	deleteErr error
	deletes   []string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{uploads: make(map[string][]byte)}
}

func (f *fakeObjectStore) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads[path] = data
	return path, nil
}

func (f *fakeObjectStore) Delete(ctx context.Context, path string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes = append(f.deletes, path)
	delete(f.uploads, path)
	return nil
}

type fakeFormatRepo struct {
	formats map[string]*model.CustomFormat
	nextID  int
}

func newFakeFormatRepo() *fakeFormatRepo {
	return &fakeFormatRepo{formats: make(map[string]*model.CustomFormat)}
}

func (f *fakeFormatRepo) Create(ctx context.Context, cf *model.CustomFormat) error {
	f.nextID++
	cf.ID = "fmt-" + string(rune('a'+f.nextID))
	cf.CreatedAt = time.Now()
	copy := *cf
	f.formats[cf.ID] = &copy
	return nil
}

func (f *fakeFormatRepo) ListByUser(ctx context.Context, userID string) ([]model.CustomFormat, error) {
	var out []model.CustomFormat
	for _, cf := range f.formats {
		if cf.UserID == userID {
			out = append(out, *cf)
		}
	}
	return out, nil
}

func (f *fakeFormatRepo) GetByID(ctx context.Context, id string) (*model.CustomFormat, error) {
	cf, ok := f.formats[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *cf
	return &copy, nil
}

func (f *fakeFormatRepo) Update(ctx context.Context, cf *model.CustomFormat) error {
	if _, ok := f.formats[cf.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *cf
	f.formats[cf.ID] = &copy
	return nil
}

func (f *fakeFormatRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.formats[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.formats, id)
	return nil
}

func (f *fakeFormatRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	count := 0
	for _, cf := range f.formats {
		if cf.UserID == userID {
			count++
		}
	}
	return count, nil
}

type fakePublisher struct {
	published [][]byte
	topics    []string
	err       error
}

func (f *fakePublisher) Publish(ctx context.Context, topic string, payload []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.topics = append(f.topics, topic)
	f.published = append(f.published, payload)
	return "msg-1", nil
}

// entFor builds an entitlement for a plan without touching the directory.
func entFor(accountID string, plan model.PlanType) *model.Entitlement {
	return &model.Entitlement{
		AccountID:  accountID,
		Plan:       plan,
		Status:     model.StatusActive,
		Limits:     model.LimitsFor(plan),
		ResolvedAt: time.Now(),
	}
}
