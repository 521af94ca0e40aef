package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/verimart/verimart/internal/domain"
)

// In-memory stand-ins for the postgres repositories. They reproduce the
// stores' observable semantics (duplicate detection, conditioned writes,
// nil-on-absent reads) without a database.

type stubPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *stubPublisher) Publish(_ context.Context, subject string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *stubPublisher) Close() error { return nil }

func (p *stubPublisher) published(subject string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.subjects {
		if s == subject {
			return true
		}
	}
	return false
}

type stubMailer struct {
	mu    sync.Mutex
	to    string
	code  string
	err   error
	sends int
}

func (m *stubMailer) SendVerificationCode(to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.to, m.code = to, code
	m.sends++
	return m.err
}

func (m *stubMailer) lastCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.code
}

type memUserRepo struct {
	mu      sync.Mutex
	nextID  int64
	users   map[string]*domain.User
	grants  map[string]map[string]struct{}
	catalog map[string]int64
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		users:  make(map[string]*domain.User),
		grants: make(map[string]map[string]struct{}),
		catalog: map[string]int64{
			domain.AttrAdmin:         1,
			domain.AttrSeller:        2,
			domain.AttrPendingSeller: 3,
			domain.AttrVerified:      4,
			domain.AttrBuyer:         5,
			domain.AttrNewUser:       6,
		},
	}
}

func (r *memUserRepo) ResolveIDs(_ context.Context, names []string) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int64
	for _, name := range names {
		id, ok := r.catalog[name]
		if !ok {
			return nil, domain.ErrUnknownAttribute
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *memUserRepo) Create(_ context.Context, username, passwordHash string, attributes []string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[username]; exists {
		return nil, domain.ErrDuplicateUsername
	}
	for _, a := range attributes {
		if _, ok := r.catalog[a]; !ok {
			return nil, domain.ErrUnknownAttribute
		}
	}
	r.nextID++
	u := &domain.User{
		ID:           r.nextID,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	r.users[username] = u
	grants := make(map[string]struct{}, len(attributes))
	for _, a := range attributes {
		grants[a] = struct{}{}
	}
	r.grants[username] = grants
	return u, nil
}

func (r *memUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) AttributeIDs(_ context.Context, username string) (domain.AttributeSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := domain.NewAttributeSet()
	for name := range r.grants[username] {
		set.Add(r.catalog[name])
	}
	return set, nil
}

func (r *memUserRepo) AttributeNames(_ context.Context, username string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var names []string
	for name := range r.grants[username] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (r *memUserRepo) AddAttribute(_ context.Context, username, attribute string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[username]; !ok {
		return nil
	}
	if _, ok := r.catalog[attribute]; !ok {
		return nil
	}
	r.grants[username][attribute] = struct{}{}
	return nil
}

func (r *memUserRepo) RemoveAttribute(_ context.Context, username, attribute string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if grants, ok := r.grants[username]; ok {
		delete(grants, attribute)
	}
	return nil
}

func (r *memUserRepo) ListWithAttributes(ctx context.Context) ([]domain.UserWithAttributes, error) {
	return r.list(ctx, false)
}

func (r *memUserRepo) ListSellers(ctx context.Context) ([]domain.UserWithAttributes, error) {
	return r.list(ctx, true)
}

func (r *memUserRepo) list(_ context.Context, sellersOnly bool) ([]domain.UserWithAttributes, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var usernames []string
	for name := range r.users {
		usernames = append(usernames, name)
	}
	sort.Strings(usernames)

	var out []domain.UserWithAttributes
	for _, username := range usernames {
		if sellersOnly {
			if _, ok := r.grants[username][domain.AttrSeller]; !ok {
				continue
			}
		}
		var attrs []string
		for a := range r.grants[username] {
			attrs = append(attrs, a)
		}
		sort.Strings(attrs)
		if attrs == nil {
			attrs = []string{}
		}
		out = append(out, domain.UserWithAttributes{Username: username, Attributes: attrs})
	}
	return out, nil
}

func (r *memUserRepo) holds(username, attribute string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.grants[username][attribute]
	return ok
}

type memVerifyRepo struct {
	users *memUserRepo
}

func (r *memVerifyRepo) SetChallenge(_ context.Context, username, codeHash string, expiresAt time.Time) error {
	r.users.mu.Lock()
	defer r.users.mu.Unlock()
	u, ok := r.users.users[username]
	if !ok {
		return domain.ErrUserNotFound
	}
	hash := codeHash
	exp := expiresAt
	u.CodeHash = &hash
	u.CodeExpires = &exp
	return nil
}

func (r *memVerifyRepo) GetChallenge(_ context.Context, username string) (*string, *time.Time, error) {
	r.users.mu.Lock()
	defer r.users.mu.Unlock()
	u, ok := r.users.users[username]
	if !ok {
		return nil, nil, domain.ErrUserNotFound
	}
	return u.CodeHash, u.CodeExpires, nil
}

func (r *memVerifyRepo) Consume(_ context.Context, username string) error {
	r.users.mu.Lock()
	defer r.users.mu.Unlock()
	u, ok := r.users.users[username]
	if !ok {
		return domain.ErrUserNotFound
	}
	r.users.grants[username][domain.AttrVerified] = struct{}{}
	u.CodeHash = nil
	u.CodeExpires = nil
	return nil
}

type memSellerRepo struct {
	mu       sync.Mutex
	users    *memUserRepo
	nextID   int64
	profiles map[string]*domain.SellerProfile

	// approveErr, when set, is returned by Approve with no state change, the
	// way a rolled-back transaction leaves the store.
	approveErr error
}

func newMemSellerRepo(users *memUserRepo) *memSellerRepo {
	return &memSellerRepo{users: users, profiles: make(map[string]*domain.SellerProfile)}
}

func (r *memSellerRepo) Approve(_ context.Context, username string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.approveErr != nil {
		return 0, r.approveErr
	}

	r.users.mu.Lock()
	defer r.users.mu.Unlock()
	u, ok := r.users.users[username]
	if !ok {
		return 0, domain.ErrUserNotFound
	}
	if _, pending := r.users.grants[username][domain.AttrPendingSeller]; !pending {
		return 0, domain.ErrNotPendingSeller
	}
	delete(r.users.grants[username], domain.AttrPendingSeller)
	r.users.grants[username][domain.AttrSeller] = struct{}{}

	if p, exists := r.profiles[username]; exists {
		return p.ID, nil
	}
	r.nextID++
	p := &domain.SellerProfile{ID: r.nextID, UserID: u.ID, DisplayName: username}
	r.profiles[username] = p
	return p.ID, nil
}

func (r *memSellerRepo) ProfileByUsername(_ context.Context, username string) (*domain.SellerProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[username]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

type memItemRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*domain.Item
}

func newMemItemRepo() *memItemRepo {
	return &memItemRepo{items: make(map[int64]*domain.Item)}
}

func (r *memItemRepo) Create(_ context.Context, sellerID int64, req *domain.CreateItemRequest) (*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	it := &domain.Item{
		ID:          r.nextID,
		SellerID:    sellerID,
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Status:      domain.ItemAvailable,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	r.items[it.ID] = it
	cp := *it
	return &cp, nil
}

func (r *memItemRepo) GetByID(_ context.Context, id int64) (*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	cp := *it
	return &cp, nil
}

func (r *memItemRepo) List(_ context.Context) ([]domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Item
	for id := r.nextID; id >= 1; id-- {
		if it, ok := r.items[id]; ok {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (r *memItemRepo) ListBySeller(_ context.Context, sellerID int64) ([]domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Item
	for id := r.nextID; id >= 1; id-- {
		if it, ok := r.items[id]; ok && it.SellerID == sellerID {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (r *memItemRepo) Reserve(_ context.Context, id, buyerID int64) (*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	if it.Status != domain.ItemAvailable {
		return nil, domain.ErrItemUnavailable
	}
	b := buyerID
	it.Status = domain.ItemReserved
	it.BuyerID = &b
	it.UpdatedAt = time.Now()
	cp := *it
	return &cp, nil
}

func (r *memItemRepo) Finalize(_ context.Context, id, sellerID int64) (*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	if it.SellerID != sellerID || it.Status != domain.ItemReserved {
		return nil, domain.ErrNotOwnedOrNotReserved
	}
	it.Status = domain.ItemSold
	it.UpdatedAt = time.Now()
	cp := *it
	return &cp, nil
}

func (r *memItemRepo) Release(_ context.Context, id, sellerID int64) (*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	if it.SellerID != sellerID || it.Status != domain.ItemReserved {
		return nil, domain.ErrNotOwnedOrNotReserved
	}
	it.Status = domain.ItemAvailable
	it.BuyerID = nil
	it.UpdatedAt = time.Now()
	cp := *it
	return &cp, nil
}
