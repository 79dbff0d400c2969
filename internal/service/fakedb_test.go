package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/ftp-kitchen/api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// --- Mock transaction ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
// Rollback before Commit restores the fake database to its state at Begin.
type mockTx struct {
	db        *fakeDB
	snap      *fakeState
	committed bool
	commitErr error
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.committed = true
	return nil
}
func (m *mockTx) Rollback(ctx context.Context) error {
	if !m.committed && m.db != nil {
		m.db.restore(m.snap)
	}
	return nil
}
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner on top of a fakeDB.
type mockTxBeginner struct {
	db        *fakeDB
	err       error
	commitErr error
	begun     int
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.begun++
	return &mockTx{db: m.db, snap: m.db.snapshot(), commitErr: m.commitErr}, nil
}

// --- Fake database ---

type fakeState struct {
	orders    map[uuid.UUID]database.Order
	guests    map[uuid.UUID]database.Guest
	enquiries map[uuid.UUID]database.Enquiry
	logs      []database.ChangeLog
}

// fakeDB is an in-memory stand-in for *database.Queries. It follows the
// SQL semantics the services rely on: active-email uniqueness, NOT
// is_deleted filters and newest-first listings.
type fakeDB struct {
	fakeState
	clock time.Time

	// Failure injection. Hooks run before the default behaviour; a non-nil
	// error is returned as is.
	createOrderHook     func(arg database.CreateOrderParams) error
	createChangeLogErr  error
	latestOrderNumber   func() (string, error)
	updateGuestStatsErr error
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		fakeState: fakeState{
			orders:    map[uuid.UUID]database.Order{},
			guests:    map[uuid.UUID]database.Guest{},
			enquiries: map[uuid.UUID]database.Enquiry{},
		},
		clock: time.Date(2024, 12, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fakeDB) snapshot() *fakeState {
	s := &fakeState{
		orders:    make(map[uuid.UUID]database.Order, len(f.orders)),
		guests:    make(map[uuid.UUID]database.Guest, len(f.guests)),
		enquiries: make(map[uuid.UUID]database.Enquiry, len(f.enquiries)),
		logs:      append([]database.ChangeLog(nil), f.logs...),
	}
	for k, v := range f.orders {
		s.orders[k] = v
	}
	for k, v := range f.guests {
		s.guests[k] = v
	}
	for k, v := range f.enquiries {
		s.enquiries[k] = v
	}
	return s
}

func (f *fakeDB) restore(s *fakeState) {
	if s == nil {
		return
	}
	f.fakeState = *s
}

// tick advances the fake clock so created_at values are strictly ordered.
func (f *fakeDB) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func pgUniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

// --- Orders ---

func (f *fakeDB) GetLatestOrderNumber(ctx context.Context) (string, error) {
	if f.latestOrderNumber != nil {
		return f.latestOrderNumber()
	}
	// Highest parsable counter wins; unparsable numbers rank below, newest first.
	var latest *database.Order
	latestN, latestOK := 0, false
	for _, o := range f.orders {
		o := o
		n, ok := parseOrderNumber(o.OrderNumber)
		better := latest == nil
		switch {
		case better:
		case ok && !latestOK:
			better = true
		case ok && latestOK:
			better = n > latestN
		case !ok && !latestOK:
			better = o.CreatedAt.After(latest.CreatedAt)
		}
		if better {
			latest, latestN, latestOK = &o, n, ok
		}
	}
	if latest == nil {
		return "", pgx.ErrNoRows
	}
	return latest.OrderNumber, nil
}

func (f *fakeDB) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	if f.createOrderHook != nil {
		if err := f.createOrderHook(arg); err != nil {
			return database.Order{}, err
		}
	}
	for _, o := range f.orders {
		if o.OrderNumber == arg.OrderNumber {
			return database.Order{}, pgUniqueViolation(orderNumberConstraint)
		}
	}
	now := f.tick()
	o := database.Order{
		ID:               uuid.New(),
		OrderNumber:      arg.OrderNumber,
		GuestID:          arg.GuestID,
		GuestDetails:     arg.GuestDetails,
		CollectionPerson: arg.CollectionPerson,
		Items:            arg.Items,
		TotalAmount:      arg.TotalAmount,
		CollectionDate:   arg.CollectionDate,
		CollectionTime:   arg.CollectionTime,
		Status:           arg.Status,
		StatusHistory:    arg.StatusHistory,
		PaymentMethod:    arg.PaymentMethod,
		PaymentStatus:    arg.PaymentStatus,
		PaymentRecords:   arg.PaymentRecords,
		TotalPaid:        arg.TotalPaid,
		CreatedBy:        arg.CreatedBy,
		LastModifiedBy:   arg.CreatedBy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeDB) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (f *fakeDB) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return f.GetOrder(ctx, id)
}

func (f *fakeDB) UpdateOrder(ctx context.Context, arg database.UpdateOrderParams) (database.Order, error) {
	o, ok := f.orders[arg.ID]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	o.GuestID = arg.GuestID
	o.GuestDetails = arg.GuestDetails
	o.CollectionPerson = arg.CollectionPerson
	o.Items = arg.Items
	o.TotalAmount = arg.TotalAmount
	o.CollectionDate = arg.CollectionDate
	o.CollectionTime = arg.CollectionTime
	o.Status = arg.Status
	o.StatusHistory = arg.StatusHistory
	o.PaymentMethod = arg.PaymentMethod
	o.PaymentStatus = arg.PaymentStatus
	o.PaymentRecords = arg.PaymentRecords
	o.TotalPaid = arg.TotalPaid
	o.IsDeleted = arg.IsDeleted
	o.LastModifiedBy = arg.LastModifiedBy
	o.UpdatedAt = f.tick()
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeDB) SetOrderGuest(ctx context.Context, arg database.SetOrderGuestParams) (database.Order, error) {
	o, ok := f.orders[arg.ID]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	o.GuestID = arg.GuestID
	o.GuestDetails = arg.GuestDetails
	f.orders[o.ID] = o
	return o, nil
}

// sortedOrders returns orders matching keep, newest first.
func (f *fakeDB) sortedOrders(keep func(database.Order) bool) []database.Order {
	out := []database.Order{}
	for _, o := range f.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func orderFilterMatches(o database.Order, status pgtype.Text, guestID pgtype.UUID, from, to pgtype.Timestamptz, includeDeleted bool) bool {
	if o.IsDeleted && !includeDeleted {
		return false
	}
	if status.Valid && o.Status != status.String {
		return false
	}
	if guestID.Valid && (!o.GuestID.Valid || o.GuestID.Bytes != guestID.Bytes) {
		return false
	}
	if from.Valid && o.CollectionDate.Before(from.Time) {
		return false
	}
	if to.Valid && o.CollectionDate.After(to.Time) {
		return false
	}
	return true
}

func (f *fakeDB) ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	all := f.sortedOrders(func(o database.Order) bool {
		return orderFilterMatches(o, arg.Status, arg.GuestID, arg.CollectionFrom, arg.CollectionTo, arg.IncludeDeleted)
	})
	return page(all, arg.Limit, arg.Offset), nil
}

func (f *fakeDB) CountOrders(ctx context.Context, arg database.CountOrdersParams) (int64, error) {
	all := f.sortedOrders(func(o database.Order) bool {
		return orderFilterMatches(o, arg.Status, arg.GuestID, arg.CollectionFrom, arg.CollectionTo, arg.IncludeDeleted)
	})
	return int64(len(all)), nil
}

func (f *fakeDB) ListActiveOrders(ctx context.Context) ([]database.Order, error) {
	return f.sortedOrders(func(o database.Order) bool { return !o.IsDeleted }), nil
}

func (f *fakeDB) ListActiveOrdersByCollectionDate(ctx context.Context, arg database.ListActiveOrdersByCollectionDateParams) ([]database.Order, error) {
	return f.sortedOrders(func(o database.Order) bool {
		return !o.IsDeleted && !o.CollectionDate.Before(arg.Start) && !o.CollectionDate.After(arg.End)
	}), nil
}

func (f *fakeDB) ListActiveOrdersByGuest(ctx context.Context, guestID uuid.UUID) ([]database.Order, error) {
	return f.sortedOrders(func(o database.Order) bool {
		return !o.IsDeleted && o.GuestID.Valid && o.GuestID.Bytes == guestID
	}), nil
}

func (f *fakeDB) CountActiveOrdersByGuest(ctx context.Context, guestID uuid.UUID) (int64, error) {
	orders, _ := f.ListActiveOrdersByGuest(ctx, guestID)
	return int64(len(orders)), nil
}

func (f *fakeDB) ListUnlinkedOrders(ctx context.Context) ([]database.Order, error) {
	return f.sortedOrders(func(o database.Order) bool { return !o.IsDeleted && !o.GuestID.Valid }), nil
}

// --- Guests ---

func (f *fakeDB) CreateGuest(ctx context.Context, arg database.CreateGuestParams) (database.Guest, error) {
	for _, g := range f.guests {
		if !g.IsDeleted && g.Email == arg.Email {
			return database.Guest{}, pgUniqueViolation(guestEmailConstraint)
		}
	}
	now := f.tick()
	g := database.Guest{
		ID:                     uuid.New(),
		Name:                   arg.Name,
		Email:                  arg.Email,
		Phone:                  arg.Phone,
		Address:                arg.Address,
		Notes:                  arg.Notes,
		DietaryRequirements:    arg.DietaryRequirements,
		PreferredContactMethod: arg.PreferredContactMethod,
		TotalSpent:             decimalToNumeric(decimal.Zero),
		CreatedBy:              arg.CreatedBy,
		LastModifiedBy:         arg.CreatedBy,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	f.guests[g.ID] = g
	return g, nil
}

func (f *fakeDB) GetGuest(ctx context.Context, id uuid.UUID) (database.Guest, error) {
	g, ok := f.guests[id]
	if !ok {
		return database.Guest{}, pgx.ErrNoRows
	}
	return g, nil
}

func (f *fakeDB) GetActiveGuestByEmail(ctx context.Context, email string) (database.Guest, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, g := range f.guests {
		if !g.IsDeleted && g.Email == email {
			return g, nil
		}
	}
	return database.Guest{}, pgx.ErrNoRows
}

func (f *fakeDB) UpdateGuestStats(ctx context.Context, arg database.UpdateGuestStatsParams) error {
	if f.updateGuestStatsErr != nil {
		return f.updateGuestStatsErr
	}
	g, ok := f.guests[arg.ID]
	if !ok {
		return nil
	}
	g.TotalOrders = arg.TotalOrders
	g.TotalSpent = arg.TotalSpent
	g.LastOrderDate = arg.LastOrderDate
	f.guests[g.ID] = g
	return nil
}

func (f *fakeDB) activeGuests(search string) []database.Guest {
	search = strings.ToLower(search)
	out := []database.Guest{}
	for _, g := range f.guests {
		if g.IsDeleted {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(g.Name), search) &&
			!strings.Contains(g.Email, search) &&
			!strings.Contains(g.Phone, search) {
			continue
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (f *fakeDB) ListGuests(ctx context.Context, arg database.ListGuestsParams) ([]database.Guest, error) {
	return page(f.activeGuests(arg.Search.String), arg.Limit, arg.Offset), nil
}

func (f *fakeDB) CountGuests(ctx context.Context, search pgtype.Text) (int64, error) {
	return int64(len(f.activeGuests(search.String))), nil
}

func (f *fakeDB) CountActiveGuests(ctx context.Context) (int64, error) {
	return int64(len(f.activeGuests(""))), nil
}

func (f *fakeDB) SearchGuests(ctx context.Context, arg database.SearchGuestsParams) ([]database.Guest, error) {
	return page(f.activeGuests(arg.Query), arg.Limit, 0), nil
}

func (f *fakeDB) UpdateGuest(ctx context.Context, arg database.UpdateGuestParams) (database.Guest, error) {
	g, ok := f.guests[arg.ID]
	if !ok || g.IsDeleted {
		return database.Guest{}, pgx.ErrNoRows
	}
	for _, other := range f.guests {
		if other.ID != g.ID && !other.IsDeleted && other.Email == arg.Email {
			return database.Guest{}, pgUniqueViolation(guestEmailConstraint)
		}
	}
	g.Name = arg.Name
	g.Email = arg.Email
	g.Phone = arg.Phone
	g.Address = arg.Address
	g.Notes = arg.Notes
	g.DietaryRequirements = arg.DietaryRequirements
	g.PreferredContactMethod = arg.PreferredContactMethod
	g.LastModifiedBy = arg.LastModifiedBy
	g.UpdatedAt = f.tick()
	f.guests[g.ID] = g
	return g, nil
}

func (f *fakeDB) SoftDeleteGuest(ctx context.Context, arg database.SoftDeleteGuestParams) (database.Guest, error) {
	g, ok := f.guests[arg.ID]
	if !ok || g.IsDeleted {
		return database.Guest{}, pgx.ErrNoRows
	}
	g.IsDeleted = true
	g.LastModifiedBy = arg.LastModifiedBy
	f.guests[g.ID] = g
	return g, nil
}

func (f *fakeDB) ListActiveGuestIDs(ctx context.Context) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	for _, g := range f.activeGuests("") {
		ids = append(ids, g.ID)
	}
	return ids, nil
}

// --- Change logs ---

func (f *fakeDB) CreateChangeLog(ctx context.Context, arg database.CreateChangeLogParams) (database.ChangeLog, error) {
	if f.createChangeLogErr != nil {
		return database.ChangeLog{}, f.createChangeLogErr
	}
	cl := database.ChangeLog{
		ID:          uuid.New(),
		EntityType:  arg.EntityType,
		EntityID:    arg.EntityID,
		ChangeType:  arg.ChangeType,
		ChangedBy:   arg.ChangedBy,
		Changes:     arg.Changes,
		Description: arg.Description,
		CreatedAt:   f.tick(),
	}
	f.logs = append(f.logs, cl)
	return cl, nil
}

func (f *fakeDB) ListChangeLogsByEntity(ctx context.Context, arg database.ListChangeLogsByEntityParams) ([]database.ChangeLog, error) {
	out := []database.ChangeLog{}
	for i := len(f.logs) - 1; i >= 0; i-- {
		cl := f.logs[i]
		if cl.EntityType == arg.EntityType && cl.EntityID == arg.EntityID {
			out = append(out, cl)
		}
	}
	return out, nil
}

// logsOf returns change types recorded for an entity, oldest first.
func (f *fakeDB) logsOf(entityType string, id uuid.UUID) []string {
	var types []string
	for _, cl := range f.logs {
		if cl.EntityType == entityType && cl.EntityID == id {
			types = append(types, cl.ChangeType)
		}
	}
	return types
}

// --- Enquiries ---

func (f *fakeDB) CreateEnquiry(ctx context.Context, arg database.CreateEnquiryParams) (database.Enquiry, error) {
	now := f.tick()
	e := database.Enquiry{
		ID:                    uuid.New(),
		GuestName:             arg.GuestName,
		GuestEmail:            arg.GuestEmail,
		GuestPhone:            arg.GuestPhone,
		GuestAddress:          arg.GuestAddress,
		EnquiryDetails:        arg.EnquiryDetails,
		DesiredCollectionDate: arg.DesiredCollectionDate,
		DesiredCollectionTime: arg.DesiredCollectionTime,
		Status:                "new",
		Notes:                 arg.Notes,
		CreatedBy:             arg.CreatedBy,
		LastModifiedBy:        arg.CreatedBy,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	f.enquiries[e.ID] = e
	return e, nil
}

func (f *fakeDB) GetEnquiry(ctx context.Context, id uuid.UUID) (database.Enquiry, error) {
	e, ok := f.enquiries[id]
	if !ok {
		return database.Enquiry{}, pgx.ErrNoRows
	}
	return e, nil
}

func (f *fakeDB) GetEnquiryForUpdate(ctx context.Context, id uuid.UUID) (database.Enquiry, error) {
	return f.GetEnquiry(ctx, id)
}

func (f *fakeDB) ListEnquiries(ctx context.Context, arg database.ListEnquiriesParams) ([]database.Enquiry, error) {
	out := []database.Enquiry{}
	for _, e := range f.enquiries {
		if arg.Status.Valid && e.Status != arg.Status.String {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, arg.Limit, arg.Offset), nil
}

func (f *fakeDB) UpdateEnquiry(ctx context.Context, arg database.UpdateEnquiryParams) (database.Enquiry, error) {
	e, ok := f.enquiries[arg.ID]
	if !ok {
		return database.Enquiry{}, pgx.ErrNoRows
	}
	e.GuestName = arg.GuestName
	e.GuestEmail = arg.GuestEmail
	e.GuestPhone = arg.GuestPhone
	e.GuestAddress = arg.GuestAddress
	e.EnquiryDetails = arg.EnquiryDetails
	e.DesiredCollectionDate = arg.DesiredCollectionDate
	e.DesiredCollectionTime = arg.DesiredCollectionTime
	e.Status = arg.Status
	e.Notes = arg.Notes
	e.LastModifiedBy = arg.LastModifiedBy
	e.UpdatedAt = f.tick()
	f.enquiries[e.ID] = e
	return e, nil
}

func (f *fakeDB) MarkEnquiryConverted(ctx context.Context, arg database.MarkEnquiryConvertedParams) (database.Enquiry, error) {
	e, ok := f.enquiries[arg.ID]
	if !ok {
		return database.Enquiry{}, pgx.ErrNoRows
	}
	e.Status = "converted"
	e.ConvertedToOrder = arg.ConvertedToOrder
	e.LastModifiedBy = arg.LastModifiedBy
	e.UpdatedAt = f.tick()
	f.enquiries[e.ID] = e
	return e, nil
}

func (f *fakeDB) DeleteEnquiry(ctx context.Context, id uuid.UUID) (int64, error) {
	if _, ok := f.enquiries[id]; !ok {
		return 0, nil
	}
	delete(f.enquiries, id)
	return 1, nil
}

func page[T any](all []T, limit, offset int32) []T {
	if int(offset) >= len(all) {
		return []T{}
	}
	all = all[offset:]
	if limit > 0 && int(limit) < len(all) {
		all = all[:limit]
	}
	return all
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

func decimalEquals(d decimal.Decimal, expected string) bool {
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

// countingInvalidator records stats cache invalidations.
type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) Invalidate(ctx context.Context) error {
	c.calls++
	return nil
}

// testEnv wires every service against one fakeDB.
type testEnv struct {
	db       *fakeDB
	pool     *mockTxBeginner
	orders   *OrderService
	guests   *GuestService
	enquiry  *EnquiryService
	stats    *countingInvalidator
	dubai    *time.Location
	actor    uuid.UUID
	nowValue time.Time
}

func newTestEnv() *testEnv {
	db := newFakeDB()
	pool := &mockTxBeginner{db: db}
	audit := NewAuditRecorder(db)
	dubai := time.FixedZone("Asia/Dubai", 4*60*60)

	orders := NewOrderService(pool, func(database.DBTX) OrderStore { return db }, db, audit, dubai)
	now := time.Date(2024, 12, 1, 10, 0, 0, 0, dubai)
	orders.now = func() time.Time { return now }

	stats := &countingInvalidator{}
	orders.SetStatsInvalidator(stats)
	guests := NewGuestService(db, audit)
	guests.SetStatsInvalidator(stats)
	enquiry := NewEnquiryService(pool, func(database.DBTX) EnquiryStore { return db }, db, orders, audit)

	return &testEnv{
		db:       db,
		pool:     pool,
		orders:   orders,
		guests:   guests,
		enquiry:  enquiry,
		stats:    stats,
		dubai:    dubai,
		actor:    uuid.New(),
		nowValue: now,
	}
}

func (e *testEnv) basicReq() CreateOrderRequest {
	return CreateOrderRequest{
		CreatedBy:    e.actor,
		GuestDetails: GuestDetails{Name: "Sara Khan", Email: "sara@example.com", Phone: "0501234567", Address: "Villa 12"},
		Items: []OrderItemInput{
			{Name: "Turkey", ServingSize: "Whole", Quantity: 1, Price: "550.00"},
		},
		CollectionDate: "2024-12-24",
		CollectionTime: "14:00",
		PaymentMethod:  "cash",
	}
}
