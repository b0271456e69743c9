package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"dispatch/models"
)

// memStore is an in-memory Store used by the engine tests. A single mutex
// serializes every transition, mirroring the row-level serialization the
// Postgres conditional updates provide, so the engine's exactly-once
// behavior can be raced for real.
type memStore struct {
	mu sync.Mutex

	companies    map[string]*models.Company
	members      map[string]*models.Member
	calls        map[string]*models.Call
	bids         map[string]*models.Bid
	bidOrder     []string
	marketplaces map[string]*models.Marketplace
	mpMembers    map[string]map[string]bool
	shares       map[string][]string
	oncall       map[string]*models.OnCallStatus
	events       []models.CallEvent
	eventSeq     int64
}

func newMemStore() *memStore {
	return &memStore{
		companies:    map[string]*models.Company{},
		members:      map[string]*models.Member{},
		calls:        map[string]*models.Call{},
		bids:         map[string]*models.Bid{},
		marketplaces: map[string]*models.Marketplace{},
		mpMembers:    map[string]map[string]bool{},
		shares:       map[string][]string{},
		oncall:       map[string]*models.OnCallStatus{},
	}
}

func copyCall(c *models.Call) *models.Call {
	out := *c
	out.SharedTo = append([]string(nil), c.SharedTo...)
	return &out
}

func copyBid(b *models.Bid) *models.Bid {
	out := *b
	return &out
}

func (s *memStore) GetCompany(_ context.Context, code string) (*models.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[code]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (s *memStore) CreateCompany(_ context.Context, c *models.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.CreatedAt = time.Now()
	s.companies[c.Code] = c
	return nil
}

func (s *memStore) GetMember(_ context.Context, id string) (*models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := *m
	return &out, nil
}

func (s *memStore) CreateMember(_ context.Context, m *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.CreatedAt = time.Now()
	s.members[m.ID] = m
	return nil
}

func (s *memStore) CreateCall(_ context.Context, c *models.Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.calls[c.ID] = copyCall(c)
	return nil
}

func (s *memStore) GetCall(_ context.Context, id string) (*models.Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := copyCall(c)
	out.SharedTo = append([]string(nil), s.shares[id]...)
	return out, nil
}

func (s *memStore) ListOpenCallsForTenant(_ context.Context, companyCode string, now time.Time, limit, offset int) ([]models.Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	visible := []models.Call{}
	for id, c := range s.calls {
		if c.Status != models.CallOpen || !now.Before(c.ExpiresAt) {
			continue
		}
		ok := c.CompanyCode == companyCode
		if !ok {
			for _, mpID := range s.shares[id] {
				if s.mpMembers[mpID][companyCode] {
					ok = true
					break
				}
			}
		}
		if ok {
			visible = append(visible, *copyCall(c))
		}
	}
	sort.Slice(visible, func(i, j int) bool {
		return visible[i].CreatedAt.After(visible[j].CreatedAt)
	})
	if offset >= len(visible) {
		return []models.Call{}, nil
	}
	visible = visible[offset:]
	if len(visible) > limit {
		visible = visible[:limit]
	}
	return visible, nil
}

func (s *memStore) supersedePendingLocked(callID string) {
	for _, b := range s.bids {
		if b.CallID == callID && b.Status == models.BidPending {
			b.Status = models.BidSuperseded
		}
	}
}

func (s *memStore) ClaimCall(_ context.Context, callID, memberID string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[callID]
	if !ok || c.Status != models.CallOpen || !now.Before(c.ExpiresAt) {
		return false, nil
	}
	c.Status = models.CallClaimed
	c.AssignedTo = memberID
	resolved := now
	c.ResolvedAt = &resolved
	s.supersedePendingLocked(callID)
	return true, nil
}

func (s *memStore) CancelCall(_ context.Context, callID string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[callID]
	if !ok || c.Status != models.CallOpen {
		return false, nil
	}
	c.Status = models.CallCancelled
	resolved := now
	c.ResolvedAt = &resolved
	s.supersedePendingLocked(callID)
	return true, nil
}

func (s *memStore) SweepExpiredCalls(_ context.Context, now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expired := []string{}
	for id, c := range s.calls {
		if c.Status == models.CallOpen && !now.Before(c.ExpiresAt) {
			c.Status = models.CallExpired
			resolved := now
			c.ResolvedAt = &resolved
			s.supersedePendingLocked(id)
			expired = append(expired, id)
		}
	}
	return expired, nil
}

func (s *memStore) CreateBid(_ context.Context, b *models.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.bids {
		if existing.CallID == b.CallID && existing.MemberID == b.MemberID &&
			existing.Status == models.BidPending {
			existing.Status = models.BidSuperseded
		}
	}
	b.CreatedAt = time.Now()
	s.bids[b.ID] = copyBid(b)
	s.bidOrder = append(s.bidOrder, b.ID)
	return nil
}

func (s *memStore) GetBid(_ context.Context, id string) (*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bids[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return copyBid(b), nil
}

func (s *memStore) ListPendingBids(_ context.Context, callID string) ([]models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bids := []models.Bid{}
	for _, id := range s.bidOrder {
		b := s.bids[id]
		if b.CallID == callID && b.Status == models.BidPending {
			bids = append(bids, *copyBid(b))
		}
	}
	return bids, nil
}

func (s *memStore) AcceptBid(_ context.Context, bidID string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bids[bidID]
	if !ok || b.Status != models.BidPending {
		return false, nil
	}
	c, ok := s.calls[b.CallID]
	if !ok || c.Status != models.CallOpen || !now.Before(c.ExpiresAt) {
		return false, nil
	}
	c.Status = models.CallClaimed
	c.AssignedTo = b.MemberID
	resolved := now
	c.ResolvedAt = &resolved
	b.Status = models.BidAccepted
	for _, sibling := range s.bids {
		if sibling.CallID == b.CallID && sibling.Status == models.BidPending {
			sibling.Status = models.BidSuperseded
		}
	}
	return true, nil
}

func (s *memStore) RejectBid(_ context.Context, bidID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bids[bidID]
	if !ok || b.Status != models.BidPending {
		return false, nil
	}
	b.Status = models.BidRejected
	return true, nil
}

func (s *memStore) CreateMarketplace(_ context.Context, m *models.Marketplace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.CreatedAt = time.Now()
	s.marketplaces[m.ID] = m
	return nil
}

func (s *memStore) GetMarketplace(_ context.Context, id string) (*models.Marketplace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.marketplaces[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := *m
	return &out, nil
}

func (s *memStore) ListMarketplacesForTenant(_ context.Context, companyCode string) ([]models.Marketplace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Marketplace{}
	for id, m := range s.marketplaces {
		if s.mpMembers[id][companyCode] {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) AddMarketplaceMember(_ context.Context, marketplaceID, companyCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mpMembers[marketplaceID] == nil {
		s.mpMembers[marketplaceID] = map[string]bool{}
	}
	s.mpMembers[marketplaceID][companyCode] = true
	return nil
}

func (s *memStore) RemoveMarketplaceMember(_ context.Context, marketplaceID, companyCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.mpMembers[marketplaceID], companyCode)
	return nil
}

func (s *memStore) IsMarketplaceMember(_ context.Context, marketplaceID, companyCode string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mpMembers[marketplaceID][companyCode], nil
}

func (s *memStore) ShareCall(_ context.Context, callID, marketplaceID, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.shares[callID] {
		if existing == marketplaceID {
			return nil
		}
	}
	s.shares[callID] = append(s.shares[callID], marketplaceID)
	return nil
}

func (s *memStore) GetOnCall(_ context.Context, companyCode string) (*models.OnCallStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.oncall[companyCode]
	if !ok {
		return &models.OnCallStatus{CompanyCode: companyCode}, nil
	}
	out := *o
	return &out, nil
}

func (s *memStore) SetOnCall(_ context.Context, o *models.OnCallStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.oncall[o.CompanyCode] = o
	return nil
}

func (s *memStore) ClearOnCall(_ context.Context, companyCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.oncall[companyCode] = &models.OnCallStatus{CompanyCode: companyCode}
	return nil
}

func (s *memStore) TenantStats(_ context.Context, companyCode string, now time.Time) (*models.TenantStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := &models.TenantStats{CompanyCode: companyCode}
	for _, c := range s.calls {
		if c.CompanyCode != companyCode {
			continue
		}
		switch {
		case c.Status == models.CallOpen && now.Before(c.ExpiresAt):
			st.OpenCalls++
		case c.Status == models.CallExpired,
			c.Status == models.CallOpen && !now.Before(c.ExpiresAt):
			st.Expired++
		case c.Status == models.CallClaimed:
			st.Claimed++
			st.BonusPaid += c.Bonus
		case c.Status == models.CallCancelled:
			st.Cancelled++
		}
	}
	return st, nil
}

func (s *memStore) MarketplaceStats(_ context.Context, marketplaceID string) (*models.MarketplaceStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := &models.MarketplaceStats{MarketplaceID: marketplaceID}
	var totalResponse float64
	var resolved int
	for callID, mpIDs := range s.shares {
		for _, mpID := range mpIDs {
			if mpID != marketplaceID {
				continue
			}
			c := s.calls[callID]
			st.SharedCalls++
			st.TotalValue += c.EstimatedValue
			if c.Status == models.CallClaimed && c.ResolvedAt != nil {
				totalResponse += c.ResolvedAt.Sub(c.CreatedAt).Seconds()
				resolved++
			}
		}
	}
	if resolved > 0 {
		st.AvgResponseSeconds = totalResponse / float64(resolved)
	}
	return st, nil
}

func (s *memStore) AppendCallEvent(_ context.Context, e *models.CallEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventSeq++
	e.ID = s.eventSeq
	e.CreatedAt = time.Now()
	s.events = append(s.events, *e)
	return nil
}

func (s *memStore) ListCallEvents(_ context.Context, callID string) ([]models.CallEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.CallEvent{}
	for _, e := range s.events {
		if e.CallID == callID {
			out = append(out, e)
		}
	}
	return out, nil
}
