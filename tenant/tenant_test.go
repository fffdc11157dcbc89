package tenant

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	byHash map[string]*Tenant
}

func newFakeStore() *fakeStore { return &fakeStore{byHash: make(map[string]*Tenant)} }

func (s *fakeStore) CreateTenant(t *Tenant) error {
	s.byHash[t.KeyHash] = t
	return nil
}

func (s *fakeStore) GetTenantByHash(hash string) (*Tenant, error) {
	t, ok := s.byHash[hash]
	if !ok {
		return nil, errors.New("not found")
	}
	return t, nil
}

func (s *fakeStore) UpdateUsage(tenantID string, deltaUSD float64) error {
	for _, t := range s.byHash {
		if t.ID == tenantID {
			t.UsageThisMonth += deltaUSD
			return nil
		}
	}
	return errors.New("not found")
}

func TestIssue_ReturnsPrefixedPlaintextOnce(t *testing.T) {
	m := New(newFakeStore())
	plaintext, tenant, err := m.Issue("acme", nil, 60, 0, nil, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(plaintext, KeyPrefix))
	assert.NotEqual(t, plaintext, tenant.KeyHash)
}

func TestAuthenticate_SucceedsForIssuedKey(t *testing.T) {
	m := New(newFakeStore())
	plaintext, _, err := m.Issue("acme", nil, 60, 0, nil, "")
	require.NoError(t, err)

	got, err := m.Authenticate(plaintext)
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Name)
}

func TestAuthenticate_FailsForUnknownKey(t *testing.T) {
	m := New(newFakeStore())
	_, err := m.Authenticate(KeyPrefix + "deadbeef")
	assert.Error(t, err)
}

func TestWithinBudget_NilLimitAlwaysAllows(t *testing.T) {
	tn := &Tenant{UsageThisMonth: 1_000_000}
	assert.True(t, tn.WithinBudget())
}

func TestWithinBudget_EnforcesLimit(t *testing.T) {
	limit := 10.0
	tn := &Tenant{BudgetLimitMonth: &limit, UsageThisMonth: 9.99}
	assert.True(t, tn.WithinBudget())
	tn.UsageThisMonth = 10.0
	assert.False(t, tn.WithinBudget())
}

func TestAllowsModel_NilAllowlistAllowsAll(t *testing.T) {
	tn := &Tenant{}
	assert.True(t, tn.AllowsModel("anything"))
}

func TestAllowsModel_MembershipTest(t *testing.T) {
	tn := &Tenant{ModelAllowlist: []string{"gpt-4o", "claude-3"}}
	assert.True(t, tn.AllowsModel("gpt-4o"))
	assert.False(t, tn.AllowsModel("gemini-pro"))
}

func TestUpdateUsage_InvalidatesCache(t *testing.T) {
	store := newFakeStore()
	m := New(store)
	plaintext, tenant, err := m.Issue("acme", nil, 60, 0, nil, "")
	require.NoError(t, err)

	_, err = m.Authenticate(plaintext) // populate cache
	require.NoError(t, err)

	require.NoError(t, m.UpdateUsage(tenant, 5.0))

	got, err := m.Authenticate(plaintext)
	require.NoError(t, err)
	assert.Equal(t, 5.0, got.UsageThisMonth)
}
