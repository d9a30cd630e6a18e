package auth

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/matthewhartstonge/argon2"

	"github.com/hitoshi/resumekit/internal/metrics"
	"github.com/hitoshi/resumekit/internal/model"
	"github.com/hitoshi/resumekit/internal/repository"
	"github.com/hitoshi/resumekit/internal/security"
)

// --- モック定義 ---

// memIdentityStore はメールアドレスの一意性を保証するインメモリのIdentityStore。
type memIdentityStore struct {
	mu      sync.Mutex
	byEmail map[string]*model.Identity
	nextID  int

	// 各操作の失敗を差し込む
	findErr   error
	createErr error
	updateErr error
	touchErr  error

	createCalls int
	updateCalls int
	touched     map[string]time.Time
}

func newMemIdentityStore() *memIdentityStore {
	return &memIdentityStore{
		byEmail: map[string]*model.Identity{},
		touched: map[string]time.Time{},
	}
}

func (m *memIdentityStore) FindByEmail(_ context.Context, email string, includeHash bool) (*model.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	stored, ok := m.byEmail[model.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	copied := *stored
	if _, isPassword := copied.Credential.(model.PasswordCredential); isPassword && !includeHash {
		copied.Credential = model.PasswordCredential{}
	}
	return &copied, nil
}

func (m *memIdentityStore) FindByID(_ context.Context, id string) (*model.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, stored := range m.byEmail {
		if stored.ID == id {
			copied := *stored
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memIdentityStore) Create(_ context.Context, identity *model.Identity) (*model.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return nil, m.createErr
	}
	email := model.NormalizeEmail(identity.Email)
	if _, exists := m.byEmail[email]; exists {
		return nil, repository.ErrConflict
	}
	m.nextID++
	stored := *identity
	stored.ID = "user-" + strconv.Itoa(m.nextID)
	stored.Email = email
	m.byEmail[email] = &stored

	created := stored
	if _, isPassword := created.Credential.(model.PasswordCredential); isPassword {
		created.Credential = model.PasswordCredential{}
	}
	return &created, nil
}

func (m *memIdentityStore) Update(_ context.Context, id string, update model.IdentityUpdate) (*model.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	for _, stored := range m.byEmail {
		if stored.ID != id {
			continue
		}
		if update.Name != nil {
			stored.Name = *update.Name
		}
		if update.AvatarURL != nil {
			stored.AvatarURL = *update.AvatarURL
		}
		if update.Phone != nil {
			stored.Phone = *update.Phone
		}
		copied := *stored
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memIdentityStore) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.touchErr != nil {
		return m.touchErr
	}
	m.touched[id] = at
	return nil
}

func (m *memIdentityStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byEmail)
}

// stored はハッシュを含む保存済みレコードを返す。
func (m *memIdentityStore) stored(email string) *model.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byEmail[model.NormalizeEmail(email)]
}

type mockOAuthProvider struct {
	getLoginURLFn  func(state string) string
	exchangeCodeFn func(ctx context.Context, code string) (*model.ProfileAssertion, error)
}

func (m *mockOAuthProvider) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return ""
}

func (m *mockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*model.ProfileAssertion, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code)
	}
	return nil, nil
}

type mockMetrics struct {
	mu      sync.Mutex
	signIns map[string]int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{signIns: map[string]int{}}
}

func (m *mockMetrics) RecordSignIn(method, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signIns[method+"/"+outcome]++
}

func (m *mockMetrics) RecordHTTPStatus(int)               {}
func (m *mockMetrics) RecordRequestLatency(time.Duration) {}
func (m *mockMetrics) RecordResumeEvent(string)           {}
func (m *mockMetrics) RecordResumesPurged(int64)          {}

func (m *mockMetrics) count(method, outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signIns[method+"/"+outcome]
}

// --- compile-time interface checks ---
var _ repository.IdentityStore = (*memIdentityStore)(nil)
var _ OAuthProvider = (*mockOAuthProvider)(nil)
var _ metrics.MetricsCollector = (*mockMetrics)(nil)

// newTestHasher はテスト用に計算コストを下げたPasswordHasherを返す。
func newTestHasher() security.PasswordHasher {
	cfg := argon2.DefaultConfig()
	cfg.MemoryCost = 1024
	cfg.TimeCost = 1
	cfg.Parallelism = 1
	return security.NewPasswordHasher(cfg)
}
