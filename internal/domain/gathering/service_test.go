package gathering

import (
	"context"
	"errors"
	"testing"
	"time"

	"meetup-app-go/internal/domain/notification"
)

type fakeRepo struct {
	gatherings  map[string]*Gathering
	memberships map[string]*Membership
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		gatherings:  make(map[string]*Gathering),
		memberships: make(map[string]*Membership),
	}
}

func membershipKey(gatheringID, userID string) string {
	return gatheringID + "/" + userID
}

func (r *fakeRepo) Transaction(ctx context.Context, fn func(Repository) error) error {
	return fn(r)
}

func (r *fakeRepo) CreateGathering(ctx context.Context, gathering *Gathering) error {
	r.gatherings[gathering.ID] = gathering
	return nil
}

func (r *fakeRepo) GetGathering(ctx context.Context, gatheringID string) (*Gathering, error) {
	gathering, ok := r.gatherings[gatheringID]
	if !ok {
		return nil, ErrGatheringNotFound
	}
	copied := *gathering
	return &copied, nil
}

func (r *fakeRepo) ListGatheringsByUser(ctx context.Context, userID string) ([]Gathering, error) {
	var result []Gathering
	for _, membership := range r.memberships {
		if membership.UserID == userID && membership.IsActive() {
			if gathering, ok := r.gatherings[membership.GatheringID]; ok {
				result = append(result, *gathering)
			}
		}
	}
	return result, nil
}

func (r *fakeRepo) DeleteGathering(ctx context.Context, gatheringID string) error {
	delete(r.gatherings, gatheringID)
	for key, membership := range r.memberships {
		if membership.GatheringID == gatheringID {
			delete(r.memberships, key)
		}
	}
	return nil
}

func (r *fakeRepo) MarkCompleted(ctx context.Context, gatheringID string) (bool, error) {
	gathering, ok := r.gatherings[gatheringID]
	if !ok || gathering.IsCompleted {
		return false, nil
	}
	gathering.IsCompleted = true
	return true, nil
}

func (r *fakeRepo) CreateMembership(ctx context.Context, membership *Membership) error {
	key := membershipKey(membership.GatheringID, membership.UserID)
	if _, exists := r.memberships[key]; exists {
		return errors.New("duplicate membership")
	}
	if membership.CreatedAt.IsZero() {
		membership.CreatedAt = time.Now().UTC()
	}
	copied := *membership
	r.memberships[key] = &copied
	return nil
}

func (r *fakeRepo) GetMembership(ctx context.Context, gatheringID, userID string) (*Membership, error) {
	membership, ok := r.memberships[membershipKey(gatheringID, userID)]
	if !ok {
		return nil, ErrMembershipNotFound
	}
	copied := *membership
	return &copied, nil
}

func (r *fakeRepo) ListMemberships(ctx context.Context, gatheringID, status string) ([]Membership, error) {
	var result []Membership
	for _, membership := range r.memberships {
		if membership.GatheringID != gatheringID {
			continue
		}
		if status != "" && membership.Status != status {
			continue
		}
		result = append(result, *membership)
	}
	return result, nil
}

func (r *fakeRepo) DeleteMembership(ctx context.Context, gatheringID, userID, status string) (bool, error) {
	key := membershipKey(gatheringID, userID)
	membership, ok := r.memberships[key]
	if !ok {
		return false, nil
	}
	if status != "" && membership.Status != status {
		return false, nil
	}
	delete(r.memberships, key)
	return true, nil
}

func (r *fakeRepo) SwapMembershipStatus(ctx context.Context, gatheringID, userID, from, to string) (bool, error) {
	membership, ok := r.memberships[membershipKey(gatheringID, userID)]
	if !ok || membership.Status != from {
		return false, nil
	}
	membership.Status = to
	return true, nil
}

func (r *fakeRepo) IncrementMembersWithinCap(ctx context.Context, gatheringID string) (bool, error) {
	gathering, ok := r.gatherings[gatheringID]
	if !ok || gathering.CurrentMembers >= gathering.MaxMembers {
		return false, nil
	}
	gathering.CurrentMembers++
	return true, nil
}

func (r *fakeRepo) DecrementMembers(ctx context.Context, gatheringID string) error {
	gathering, ok := r.gatherings[gatheringID]
	if ok && gathering.CurrentMembers > 0 {
		gathering.CurrentMembers--
	}
	return nil
}

func (r *fakeRepo) CountMembershipsByStatus(ctx context.Context, gatheringID, status string) (int64, error) {
	var count int64
	for _, membership := range r.memberships {
		if membership.GatheringID == gatheringID && membership.Status == status {
			count++
		}
	}
	return count, nil
}

type fakeNotifier struct {
	events []notification.Event
}

func (n *fakeNotifier) Notify(ctx context.Context, event notification.Event) {
	n.events = append(n.events, event)
}

// checkCounterInvariant asserts current_members == count of approved rows.
func checkCounterInvariant(t *testing.T, repo *fakeRepo, gatheringID string) {
	t.Helper()
	gathering, err := repo.GetGathering(context.Background(), gatheringID)
	if err != nil {
		t.Fatalf("get gathering: %v", err)
	}
	count, _ := repo.CountMembershipsByStatus(context.Background(), gatheringID, StatusApproved)
	if int64(gathering.CurrentMembers) != count {
		t.Fatalf("counter invariant broken: current_members=%d approved rows=%d", gathering.CurrentMembers, count)
	}
}

func mustCreate(t *testing.T, svc *Service, creatorID string, maxMembers int, approvalRequired bool) *Gathering {
	t.Helper()
	gathering, err := svc.Create(context.Background(), creatorID, CreateInput{
		Title:            "Board games night",
		MaxMembers:       maxMembers,
		ApprovalRequired: approvalRequired,
	})
	if err != nil {
		t.Fatalf("create gathering: %v", err)
	}
	return gathering
}

func TestCreateEnrollsCreator(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	gathering := mustCreate(t, svc, "creator", 5, true)

	if gathering.CurrentMembers != 1 {
		t.Fatalf("expected current_members=1, got %d", gathering.CurrentMembers)
	}

	membership, err := svc.GetMembership(context.Background(), gathering.ID, "creator")
	if err != nil {
		t.Fatalf("get creator membership: %v", err)
	}
	if membership.Status != StatusApproved || membership.Role != RoleCreator {
		t.Fatalf("expected approved creator, got status=%s role=%s", membership.Status, membership.Role)
	}
	checkCounterInvariant(t, repo, gathering.ID)
}

func TestRequestJoinPendingThenApproveThenKick(t *testing.T) {
	repo := newFakeRepo()
	notifier := &fakeNotifier{}
	svc := NewService(repo, notifier)

	gathering := mustCreate(t, svc, "creator", 5, true)

	membership, err := svc.RequestJoin(context.Background(), gathering.ID, "user-a")
	if err != nil {
		t.Fatalf("request join: %v", err)
	}
	if membership.Status != StatusPending {
		t.Fatalf("expected pending, got %s", membership.Status)
	}

	current, _ := svc.Get(context.Background(), gathering.ID)
	if current.CurrentMembers != 1 {
		t.Fatalf("pending join must not move counter, got %d", current.CurrentMembers)
	}
	checkCounterInvariant(t, repo, gathering.ID)

	if err := svc.Approve(context.Background(), "creator", gathering.ID, "user-a"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	current, _ = svc.Get(context.Background(), gathering.ID)
	if current.CurrentMembers != 2 {
		t.Fatalf("expected current_members=2 after approve, got %d", current.CurrentMembers)
	}
	checkCounterInvariant(t, repo, gathering.ID)

	if err := svc.Kick(context.Background(), "creator", gathering.ID, "user-a"); err != nil {
		t.Fatalf("kick: %v", err)
	}
	current, _ = svc.Get(context.Background(), gathering.ID)
	if current.CurrentMembers != 1 {
		t.Fatalf("expected current_members=1 after kick, got %d", current.CurrentMembers)
	}
	kicked, _ := svc.GetMembership(context.Background(), gathering.ID, "user-a")
	if kicked.Status != StatusKicked {
		t.Fatalf("expected kicked, got %s", kicked.Status)
	}
	checkCounterInvariant(t, repo, gathering.ID)

	if len(notifier.events) != 2 {
		t.Fatalf("expected 2 notification events, got %d", len(notifier.events))
	}
	if notifier.events[0].Type != notification.TypeMembershipApproved || notifier.events[1].Type != notification.TypeMembershipKicked {
		t.Fatalf("unexpected event types: %s, %s", notifier.events[0].Type, notifier.events[1].Type)
	}
}

func TestRequestJoinAutoApprove(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	gathering := mustCreate(t, svc, "creator", 2, false)

	membership, err := svc.RequestJoin(context.Background(), gathering.ID, "user-a")
	if err != nil {
		t.Fatalf("request join: %v", err)
	}
	if membership.Status != StatusApproved {
		t.Fatalf("expected auto-approved, got %s", membership.Status)
	}
	checkCounterInvariant(t, repo, gathering.ID)

	// Capacity reached: creator + user-a.
	if _, err := svc.RequestJoin(context.Background(), gathering.ID, "user-b"); !errors.Is(err, ErrGatheringFull) {
		t.Fatalf("expected ErrGatheringFull, got %v", err)
	}
	checkCounterInvariant(t, repo, gathering.ID)
}

func TestRequestJoinDuplicate(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	gathering := mustCreate(t, svc, "creator", 5, true)

	if _, err := svc.RequestJoin(context.Background(), gathering.ID, "user-a"); err != nil {
		t.Fatalf("first join: %v", err)
	}
	if _, err := svc.RequestJoin(context.Background(), gathering.ID, "user-a"); !errors.Is(err, ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}

	// A rejected row also blocks a rejoin until it is removed.
	if err := svc.Reject(context.Background(), "creator", gathering.ID, "user-a"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := svc.RequestJoin(context.Background(), gathering.ID, "user-a"); !errors.Is(err, ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember after reject, got %v", err)
	}
}

func TestApproveIsOneWay(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	gathering := mustCreate(t, svc, "creator", 5, true)
	if _, err := svc.RequestJoin(context.Background(), gathering.ID, "user-a"); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := svc.Approve(context.Background(), "creator", gathering.ID, "user-a"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := svc.Approve(context.Background(), "creator", gathering.ID, "user-a"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second approve, got %v", err)
	}
	checkCounterInvariant(t, repo, gathering.ID)
}

func TestApproveRequiresCreator(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	gathering := mustCreate(t, svc, "creator", 5, true)
	if _, err := svc.RequestJoin(context.Background(), gathering.ID, "user-a"); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := svc.Approve(context.Background(), "user-a", gathering.ID, "user-a"); !errors.Is(err, ErrNotCreator) {
		t.Fatalf("expected ErrNotCreator, got %v", err)
	}
}

func TestRejectIsTerminal(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	gathering := mustCreate(t, svc, "creator", 5, true)
	if _, err := svc.RequestJoin(context.Background(), gathering.ID, "user-a"); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := svc.Reject(context.Background(), "creator", gathering.ID, "user-a"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := svc.Approve(context.Background(), "creator", gathering.ID, "user-a"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState approving rejected row, got %v", err)
	}
	checkCounterInvariant(t, repo, gathering.ID)
}

func TestKickGuards(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	gathering := mustCreate(t, svc, "creator", 5, true)
	if _, err := svc.RequestJoin(context.Background(), gathering.ID, "user-a"); err != nil {
		t.Fatalf("join: %v", err)
	}

	// Pending rows cannot be kicked.
	if err := svc.Kick(context.Background(), "creator", gathering.ID, "user-a"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState kicking pending row, got %v", err)
	}

	// The creator row is immutable.
	if err := svc.Kick(context.Background(), "creator", gathering.ID, "creator"); !errors.Is(err, ErrCannotKickCreator) {
		t.Fatalf("expected ErrCannotKickCreator, got %v", err)
	}

	if err := svc.Approve(context.Background(), "creator", gathering.ID, "user-a"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := svc.Kick(context.Background(), "creator", gathering.ID, "user-a"); err != nil {
		t.Fatalf("kick: %v", err)
	}
	// Kicked is terminal.
	if err := svc.Approve(context.Background(), "creator", gathering.ID, "user-a"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState approving kicked row, got %v", err)
	}
	checkCounterInvariant(t, repo, gathering.ID)
}

func TestCancelMembership(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	gathering := mustCreate(t, svc, "creator", 5, false)
	if _, err := svc.RequestJoin(context.Background(), gathering.ID, "user-a"); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := svc.Cancel(context.Background(), gathering.ID, "user-a"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	current, _ := svc.Get(context.Background(), gathering.ID)
	if current.CurrentMembers != 1 {
		t.Fatalf("expected counter back to 1, got %d", current.CurrentMembers)
	}
	checkCounterInvariant(t, repo, gathering.ID)

	// Removal frees the slot for a brand new join.
	if _, err := svc.RequestJoin(context.Background(), gathering.ID, "user-a"); err != nil {
		t.Fatalf("rejoin after cancel: %v", err)
	}

	if err := svc.Cancel(context.Background(), gathering.ID, "creator"); !errors.Is(err, ErrCreatorCannotLeave) {
		t.Fatalf("expected ErrCreatorCannotLeave, got %v", err)
	}
}

func TestCancelTerminalRowsRefused(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	gathering := mustCreate(t, svc, "creator", 5, false)
	if _, err := svc.RequestJoin(context.Background(), gathering.ID, "user-a"); err != nil {
		t.Fatalf("join a: %v", err)
	}
	if err := svc.Kick(context.Background(), "creator", gathering.ID, "user-a"); err != nil {
		t.Fatalf("kick: %v", err)
	}

	// The kicked row stays for audit; its owner cannot remove it to
	// sneak back in.
	if err := svc.Cancel(context.Background(), gathering.ID, "user-a"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState canceling kicked row, got %v", err)
	}
	if _, err := svc.RequestJoin(context.Background(), gathering.ID, "user-a"); !errors.Is(err, ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember after kick, got %v", err)
	}
	membership, err := svc.GetMembership(context.Background(), gathering.ID, "user-a")
	if err != nil {
		t.Fatalf("get membership: %v", err)
	}
	if membership.Status != StatusKicked {
		t.Fatalf("expected kicked row to survive, got %s", membership.Status)
	}
	checkCounterInvariant(t, repo, gathering.ID)
}

func TestCancelRejectedRowRefused(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	gathering := mustCreate(t, svc, "creator", 5, true)
	if _, err := svc.RequestJoin(context.Background(), gathering.ID, "user-a"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := svc.Reject(context.Background(), "creator", gathering.ID, "user-a"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	if err := svc.Cancel(context.Background(), gathering.ID, "user-a"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState canceling rejected row, got %v", err)
	}
	membership, _ := svc.GetMembership(context.Background(), gathering.ID, "user-a")
	if membership.Status != StatusRejected {
		t.Fatalf("expected rejected row to survive, got %s", membership.Status)
	}
}

func TestCompleteIsOneWay(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	gathering := mustCreate(t, svc, "creator", 5, false)

	if err := svc.Complete(context.Background(), "creator", gathering.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := svc.Complete(context.Background(), "creator", gathering.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second complete, got %v", err)
	}
	if _, err := svc.RequestJoin(context.Background(), gathering.ID, "user-a"); !errors.Is(err, ErrGatheringCompleted) {
		t.Fatalf("expected ErrGatheringCompleted, got %v", err)
	}
}

func TestIsApprovedMember(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	gathering := mustCreate(t, svc, "creator", 5, true)
	if _, err := svc.RequestJoin(context.Background(), gathering.ID, "user-a"); err != nil {
		t.Fatalf("join: %v", err)
	}

	approved, err := svc.IsApprovedMember(context.Background(), gathering.ID, "user-a")
	if err != nil || approved {
		t.Fatalf("pending member must not be approved, got approved=%v err=%v", approved, err)
	}
	approved, err = svc.IsApprovedMember(context.Background(), gathering.ID, "creator")
	if err != nil || !approved {
		t.Fatalf("creator must be approved, got approved=%v err=%v", approved, err)
	}
	approved, err = svc.IsApprovedMember(context.Background(), gathering.ID, "stranger")
	if err != nil || approved {
		t.Fatalf("stranger must not be approved, got approved=%v err=%v", approved, err)
	}

	_, err = svc.IsApprovedMember(context.Background(), "no-such-gathering", "stranger")
	if !errors.Is(err, ErrGatheringNotFound) {
		t.Fatalf("expected ErrGatheringNotFound for unknown gathering, got %v", err)
	}
}
