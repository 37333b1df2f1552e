package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"backoffice-ops/internal/core/domain"
	"backoffice-ops/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory User Repo ---

type inMemoryUserRepo struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User
}

func newInMemoryUserRepo() *inMemoryUserRepo {
	return &inMemoryUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *inMemoryUserRepo) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == u.Username {
			return fmt.Errorf("username already exists")
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *inMemoryUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *inMemoryUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// --- In-Memory Grant Repo ---

type inMemoryGrantRepo struct {
	mu     sync.RWMutex
	grants map[uuid.UUID]*domain.PermissionGrant
}

func newInMemoryGrantRepo() *inMemoryGrantRepo {
	return &inMemoryGrantRepo{grants: make(map[uuid.UUID]*domain.PermissionGrant)}
}

func (r *inMemoryGrantRepo) ListByPartner(ctx context.Context, partnerID uuid.UUID) ([]domain.PermissionGrant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.PermissionGrant
	for _, g := range r.grants {
		if g.PartnerID == partnerID {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *inMemoryGrantRepo) GetForBusiness(ctx context.Context, partnerID, businessID uuid.UUID) (*domain.PermissionGrant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, g := range r.grants {
		if g.PartnerID == partnerID && g.BusinessID == businessID {
			cp := *g
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryGrantRepo) ReplaceForPartner(ctx context.Context, tx pgx.Tx, partnerID uuid.UUID, grants []domain.PermissionGrant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := make(map[uuid.UUID]bool, len(grants))
	for _, g := range grants {
		kept[g.BusinessID] = true
	}
	for id, g := range r.grants {
		if g.PartnerID == partnerID && !kept[g.BusinessID] {
			delete(r.grants, id)
		}
	}
	for i := range grants {
		g := grants[i]
		replaced := false
		for id, existing := range r.grants {
			if existing.PartnerID == partnerID && existing.BusinessID == g.BusinessID {
				g.ID = existing.ID
				g.CreatedAt = existing.CreatedAt
				r.grants[id] = &g
				replaced = true
				break
			}
		}
		if !replaced {
			r.grants[g.ID] = &g
		}
	}
	return nil
}

// --- In-Memory Approval Rule Repo ---

type inMemoryRuleRepo struct {
	mu    sync.RWMutex
	rules map[uuid.UUID]*domain.ApprovalRule
}

func newInMemoryRuleRepo() *inMemoryRuleRepo {
	return &inMemoryRuleRepo{rules: make(map[uuid.UUID]*domain.ApprovalRule)}
}

func (r *inMemoryRuleRepo) Create(ctx context.Context, rule *domain.ApprovalRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rule
	r.rules[rule.ID] = &cp
	return nil
}

func (r *inMemoryRuleRepo) Update(ctx context.Context, rule *domain.ApprovalRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[rule.ID]; !ok {
		return fmt.Errorf("rule not found")
	}
	cp := *rule
	r.rules[rule.ID] = &cp
	return nil
}

func (r *inMemoryRuleRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return fmt.Errorf("rule not found")
	}
	rule.IsActive = false
	return nil
}

func (r *inMemoryRuleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ApprovalRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[id]
	if !ok {
		return nil, nil
	}
	cp := *rule
	return &cp, nil
}

func (r *inMemoryRuleRepo) List(ctx context.Context, includeInactive bool) ([]domain.ApprovalRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.ApprovalRule
	for _, rule := range r.rules {
		if !includeInactive && !rule.IsActive {
			continue
		}
		out = append(out, *rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

// --- In-Memory Payment Repo ---

type inMemoryPaymentRepo struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]*domain.Payment
}

func newInMemoryPaymentRepo() *inMemoryPaymentRepo {
	return &inMemoryPaymentRepo{payments: make(map[uuid.UUID]*domain.Payment)}
}

func (r *inMemoryPaymentRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *inMemoryPaymentRepo) GetByID(ctx context.Context, id uuid.UUID, scope domain.BusinessScope) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[id]
	if !ok || p.DeletedAt != nil || !scope.Allows(p.BusinessID) {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *inMemoryPaymentRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[id]
	if !ok || p.DeletedAt != nil {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *inMemoryPaymentRepo) Update(ctx context.Context, tx pgx.Tx, p *domain.Payment, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.payments[p.ID]
	if !ok || stored.DeletedAt != nil || stored.Version != expectedVersion {
		return ports.ErrVersionConflict
	}
	cp := *p
	cp.Version = expectedVersion + 1
	r.payments[p.ID] = &cp
	p.Version = cp.Version
	return nil
}

func (r *inMemoryPaymentRepo) SoftDelete(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return fmt.Errorf("payment not found")
	}
	p.DeletedAt = &at
	return nil
}

func (r *inMemoryPaymentRepo) List(ctx context.Context, params ports.PaymentListParams) ([]domain.Payment, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []domain.Payment
	for _, p := range r.payments {
		if p.DeletedAt != nil || !params.Scope.Allows(p.BusinessID) {
			continue
		}
		if params.Status != nil && p.Status != *params.Status {
			continue
		}
		if params.Type != nil && p.Type != *params.Type {
			continue
		}
		if params.Period != nil && (p.Period == nil || *p.Period != *params.Period) {
			continue
		}
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	start := (params.Page - 1) * params.PageSize
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + params.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func newInMemoryAuditRepo() *inMemoryAuditRepo {
	return &inMemoryAuditRepo{}
}

func (r *inMemoryAuditRepo) Create(ctx context.Context, tx pgx.Tx, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var seq int64
	for _, e := range r.entries {
		if e.EntityType == entry.EntityType && e.EntityID == entry.EntityID && e.Seq > seq {
			seq = e.Seq
		}
	}
	entry.Seq = seq + 1
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *inMemoryAuditRepo) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]domain.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AuditEntry
	for _, e := range r.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// --- In-Memory Task Repo ---

type inMemoryTaskRepo struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*domain.Task
}

func newInMemoryTaskRepo() *inMemoryTaskRepo {
	return &inMemoryTaskRepo{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (r *inMemoryTaskRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.tasks[t.ID] = &cp
	return nil
}

func (r *inMemoryTaskRepo) GetByID(ctx context.Context, id uuid.UUID, scope domain.BusinessScope) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok || t.DeletedAt != nil || !scope.Allows(t.BusinessID) {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *inMemoryTaskRepo) Update(ctx context.Context, tx pgx.Tx, t *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[t.ID]; !ok {
		return fmt.Errorf("task not found")
	}
	cp := *t
	r.tasks[t.ID] = &cp
	return nil
}

func (r *inMemoryTaskRepo) SoftDelete(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("task not found")
	}
	t.DeletedAt = &at
	return nil
}

func (r *inMemoryTaskRepo) List(ctx context.Context, params ports.TaskListParams) ([]domain.Task, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []domain.Task
	for _, t := range r.tasks {
		if t.DeletedAt != nil || !params.Scope.Allows(t.BusinessID) {
			continue
		}
		if params.Status != nil && t.Status != *params.Status {
			continue
		}
		all = append(all, *t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	start := (params.Page - 1) * params.PageSize
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + params.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

// --- In-Memory Workflow Repo ---

type inMemoryWorkflowRepo struct {
	mu        sync.RWMutex
	workflows map[uuid.UUID]*domain.Workflow
}

func newInMemoryWorkflowRepo() *inMemoryWorkflowRepo {
	return &inMemoryWorkflowRepo{workflows: make(map[uuid.UUID]*domain.Workflow)}
}

func (r *inMemoryWorkflowRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.workflows[w.ID] = &cp
	return nil
}

func (r *inMemoryWorkflowRepo) GetByID(ctx context.Context, id uuid.UUID, scope domain.BusinessScope) (*domain.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.workflows[id]
	if !ok || w.DeletedAt != nil || !scope.Allows(w.BusinessID) {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWorkflowRepo) Update(ctx context.Context, tx pgx.Tx, w *domain.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.workflows[w.ID]; !ok {
		return fmt.Errorf("workflow not found")
	}
	cp := *w
	r.workflows[w.ID] = &cp
	return nil
}

func (r *inMemoryWorkflowRepo) SoftDelete(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workflows[id]
	if !ok {
		return fmt.Errorf("workflow not found")
	}
	w.DeletedAt = &at
	return nil
}

func (r *inMemoryWorkflowRepo) List(ctx context.Context, params ports.WorkflowListParams) ([]domain.Workflow, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []domain.Workflow
	for _, w := range r.workflows {
		if w.DeletedAt != nil || !params.Scope.Allows(w.BusinessID) {
			continue
		}
		if params.Status != nil && w.Status != *params.Status {
			continue
		}
		all = append(all, *w)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	start := (params.Page - 1) * params.PageSize
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + params.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

// --- In-Memory Transactor ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
