package reservation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/richxcame/vehicle-marketplace/internal/availability"
	"github.com/richxcame/vehicle-marketplace/internal/daterange"
	"github.com/richxcame/vehicle-marketplace/internal/users"
	"github.com/richxcame/vehicle-marketplace/internal/vehicle"
	"github.com/richxcame/vehicle-marketplace/pkg/common"
	"github.com/richxcame/vehicle-marketplace/pkg/eventbus"
	"github.com/richxcame/vehicle-marketplace/pkg/models"
)

// In-memory stores behind the real vehicle and availability services.

type memVehicles struct {
	mu          sync.Mutex
	byID        map[uuid.UUID]vehicle.Vehicle
	stateWrites int
}

func newMemVehicles() *memVehicles {
	return &memVehicles{byID: make(map[uuid.UUID]vehicle.Vehicle)}
}

func (m *memVehicles) CreateVehicle(_ context.Context, v *vehicle.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[v.ID] = *v
	return nil
}

func (m *memVehicles) GetVehicleByID(_ context.Context, id uuid.UUID) (*vehicle.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &v, nil
}

func (m *memVehicles) GetVehicleByIDForUpdate(ctx context.Context, id uuid.UUID) (*vehicle.Vehicle, error) {
	return m.GetVehicleByID(ctx, id)
}

func (m *memVehicles) GetVehiclesByOwner(_ context.Context, ownerID uuid.UUID, _, _ int) ([]vehicle.Vehicle, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []vehicle.Vehicle
	for _, v := range m.byID {
		if v.OwnerID == ownerID {
			out = append(out, v)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memVehicles) SetValidated(_ context.Context, id uuid.UUID, validated bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	v.Validated = validated
	m.byID[id] = v
	return nil
}

func (m *memVehicles) UpdateVehicleState(_ context.Context, id uuid.UUID, reserved, available bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	v.Reserved = reserved
	v.Available = available
	m.byID[id] = v
	m.stateWrites++
	return nil
}

func (m *memVehicles) get(id uuid.UUID) vehicle.Vehicle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id]
}

type memBlocks struct {
	mu            sync.Mutex
	blocks        []availability.Block
	reasonUpdates int
}

func (m *memBlocks) ListBlocks(_ context.Context, vehicleID uuid.UUID) ([]availability.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]availability.Block, 0)
	for _, b := range m.blocks {
		if b.VehicleID == vehicleID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memBlocks) HasOverlappingBlock(_ context.Context, vehicleID uuid.UUID, r daterange.Range) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.blocks {
		if b.VehicleID == vehicleID && b.Range().Overlaps(r) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memBlocks) InsertBlock(_ context.Context, b *availability.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks = append(m.blocks, *b)
	return nil
}

func (m *memBlocks) UpdateBlockReason(_ context.Context, vehicleID uuid.UUID, r daterange.Range, reason availability.Reason) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.blocks {
		if m.blocks[i].VehicleID == vehicleID && m.blocks[i].Range() == r && !m.blocks[i].Manual {
			m.blocks[i].Reason = reason
			n++
		}
	}
	m.reasonUpdates++
	return n, nil
}

func (m *memBlocks) DeleteBlocksByRange(_ context.Context, vehicleID uuid.UUID, r daterange.Range) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.blocks[:0]
	var n int64
	for _, b := range m.blocks {
		if b.VehicleID == vehicleID && b.Range() == r && !b.Manual {
			n++
			continue
		}
		kept = append(kept, b)
	}
	m.blocks = kept
	return n, nil
}

func (m *memBlocks) GetBlockByID(_ context.Context, id uuid.UUID) (*availability.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.blocks {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memBlocks) DeleteBlock(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, b := range m.blocks {
		if b.ID == id {
			m.blocks = append(m.blocks[:i], m.blocks[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memBlocks) forVehicle(vehicleID uuid.UUID) []availability.Block {
	blocks, _ := m.ListBlocks(context.Background(), vehicleID)
	return blocks
}

type memReservations struct {
	mu   sync.Mutex
	byID map[uuid.UUID]Reservation
	// createErr, when set, is returned by Create.
	createErr error
}

func newMemReservations() *memReservations {
	return &memReservations{byID: make(map[uuid.UUID]Reservation)}
}

func (m *memReservations) Create(_ context.Context, r *Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.byID[r.ID] = *r
	return nil
}

func (m *memReservations) GetByID(_ context.Context, id uuid.UUID) (*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &r, nil
}

func (m *memReservations) UpdateDecision(_ context.Context, id uuid.UUID, confirmed bool, status Status, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	r.Confirmed = confirmed
	r.Status = status
	r.UpdatedAt = updatedAt
	m.byID[id] = r
	return nil
}

func (m *memReservations) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.byID, id)
	return nil
}

func (m *memReservations) filter(keep func(Reservation) bool) ([]*Reservation, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Reservation, 0)
	for _, r := range m.byID {
		if keep(r) {
			r := r
			out = append(out, &r)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memReservations) List(_ context.Context, _, _ int) ([]*Reservation, int64, error) {
	return m.filter(func(Reservation) bool { return true })
}

func (m *memReservations) ListByOwner(_ context.Context, ownerID uuid.UUID, _, _ int) ([]*Reservation, int64, error) {
	return m.filter(func(r Reservation) bool { return r.OwnerID == ownerID })
}

func (m *memReservations) ListByRequester(_ context.Context, requesterID uuid.UUID, _, _ int) ([]*Reservation, int64, error) {
	return m.filter(func(r Reservation) bool { return r.UserID == requesterID })
}

func (m *memReservations) HasOverlappingReservation(_ context.Context, vehicleID uuid.UUID, rng daterange.Range) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.byID {
		if r.VehicleID == vehicleID && r.Ranged() && r.Range().Overlaps(rng) {
			return true, nil
		}
	}
	return false, nil
}

type memUsers map[uuid.UUID]*models.User

func (m memUsers) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, common.NewNotFoundError("user not found", nil).WithCode(users.CodeUserNotFound)
	}
	return u, nil
}

type sentEvent struct {
	subject string
	data    eventbus.ReservationEventData
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, subject string, data *eventbus.ReservationEventData) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{subject: subject, data: *data})
	return n.err
}

func (n *recordingNotifier) subjects() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.subject)
	}
	return out
}

// rollbackTx discards writes by restoring snapshots when fn fails, which is
// enough to observe all-or-nothing behaviour against the memory stores.
type rollbackTx struct {
	h *harness
}

func (t rollbackTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	vehicles := t.h.vehicles.snapshot()
	blocks := t.h.blocks.snapshot()
	reservations := t.h.reservations.snapshot()

	err := fn(ctx)
	if err != nil {
		t.h.vehicles.restore(vehicles)
		t.h.blocks.restore(blocks)
		t.h.reservations.restore(reservations)
	}
	return err
}

func (m *memVehicles) snapshot() map[uuid.UUID]vehicle.Vehicle {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uuid.UUID]vehicle.Vehicle, len(m.byID))
	for k, v := range m.byID {
		out[k] = v
	}
	return out
}

func (m *memVehicles) restore(s map[uuid.UUID]vehicle.Vehicle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID = s
}

func (m *memBlocks) snapshot() []availability.Block {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]availability.Block(nil), m.blocks...)
}

func (m *memBlocks) restore(s []availability.Block) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks = s
}

func (m *memReservations) snapshot() map[uuid.UUID]Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uuid.UUID]Reservation, len(m.byID))
	for k, v := range m.byID {
		out[k] = v
	}
	return out
}

func (m *memReservations) restore(s map[uuid.UUID]Reservation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID = s
}

var errNotifierDown = errors.New("smtp relay unreachable")

type harness struct {
	svc          *Service
	vehicles     *memVehicles
	blocks       *memBlocks
	reservations *memReservations
	users        memUsers
	notifier     *recordingNotifier

	owner  *models.User
	buyer  *models.User
	buyer2 *models.User
	admin  *models.User
}

var fixedNow = time.Date(2025, 5, 20, 10, 30, 0, 0, time.UTC)

func newHarness() *harness {
	h := &harness{
		vehicles:     newMemVehicles(),
		blocks:       &memBlocks{},
		reservations: newMemReservations(),
		users:        memUsers{},
		notifier:     &recordingNotifier{},
	}
	h.owner = h.addUser("Olga", "owner@example.com", models.RoleUser)
	h.buyer = h.addUser("Bruno", "bruno@example.com", models.RoleUser)
	h.buyer2 = h.addUser("Bea", "bea@example.com", models.RoleUser)
	h.admin = h.addUser("Ada", "admin@example.com", models.RoleAdmin)

	tx := rollbackTx{h: h}
	vehicles := vehicle.NewService(h.vehicles)
	avail := availability.NewService(h.blocks, h.reservations, vehicles, tx)

	h.svc = NewService(tx, h.reservations, vehicles, vehicle.NewStateProjection(h.vehicles), h.users, avail)
	h.svc.SetNotifier(h.notifier)
	h.svc.SetClock(func() time.Time { return fixedNow })
	return h
}

func (h *harness) addUser(name, email string, role models.UserRole) *models.User {
	u := &models.User{ID: uuid.New(), FirstName: name, Email: email, Role: role, IsActive: true}
	h.users[u.ID] = u
	return u
}

func (h *harness) addVehicle(mode vehicle.ListingMode, price float64) vehicle.Vehicle {
	v := vehicle.Vehicle{
		ID:           uuid.New(),
		OwnerID:      h.owner.ID,
		ListingMode:  mode,
		Make:         "Peugeot",
		Model:        "308",
		Year:         2022,
		LicensePlate: "1111-" + uuid.NewString()[:3],
		Available:    true,
		Validated:    true,
	}
	if mode == vehicle.ListingModeSale {
		v.PriceTotal = &price
	} else {
		v.PricePerDay = &price
	}
	_ = h.vehicles.CreateVehicle(context.Background(), &v)
	return v
}

func actorOf(u *models.User) models.Actor {
	return models.Actor{UserID: u.ID, Role: u.Role}
}
