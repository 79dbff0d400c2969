package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/ftp-kitchen/api/internal/database"
	"github.com/ftp-kitchen/api/internal/enum"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	dateLayout        = "2006-01-02"
	trendDays         = 30
	topItemsLimit     = 10
	upcomingLimit     = 10
	upcomingWindow    = 7 * 24 * time.Hour
	dashboardCacheKey = "dashboard"
)

// AnalyticsStore defines the DB methods needed by the aggregator.
// Satisfied by *database.Queries; narrow interface for testability.
type AnalyticsStore interface {
	ListActiveOrders(ctx context.Context) ([]database.Order, error)
	ListActiveOrdersByCollectionDate(ctx context.Context, arg database.ListActiveOrdersByCollectionDateParams) ([]database.Order, error)
	CountActiveGuests(ctx context.Context) (int64, error)
}

// StatsCache memoizes computed analytics. Get returns the generation it
// read; Set must store under that generation so a value computed before an
// invalidation stays unreachable.
// Satisfied by *cache.StatsCache.
type StatsCache interface {
	Get(ctx context.Context, key string, dst any) (int64, bool, error)
	Set(ctx context.Context, gen int64, key string, v any) error
}

type TrendPoint struct {
	Date    string          `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int             `json:"orders"`
}

type ItemSummary struct {
	Name        string          `json:"name"`
	ServingSize string          `json:"serving_size"`
	Quantity    int64           `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
}

type UpcomingCollection struct {
	OrderID        uuid.UUID       `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	GuestName      string          `json:"guest_name"`
	CollectionDate time.Time       `json:"collection_date"`
	CollectionTime string          `json:"collection_time"`
	Status         string          `json:"status"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}

type DashboardStats struct {
	TotalRevenue        decimal.Decimal      `json:"total_revenue"`
	TotalCollected      decimal.Decimal      `json:"total_collected"`
	TotalOrders         int                  `json:"total_orders"`
	AverageOrderValue   decimal.Decimal      `json:"average_order_value"`
	TodayRevenue        decimal.Decimal      `json:"today_revenue"`
	TodayOrders         int                  `json:"today_orders"`
	StatusCounts        map[string]int       `json:"status_counts"`
	Trend               []TrendPoint         `json:"trend"`
	TopItems            []ItemSummary        `json:"top_items"`
	UpcomingCollections []UpcomingCollection `json:"upcoming_collections"`
	TotalGuests         int64                `json:"total_guests"`
	GeneratedAt         time.Time            `json:"generated_at"`
}

type DailyStats struct {
	Date            string          `json:"date"`
	TotalOrders     int             `json:"total_orders"`
	Revenue         decimal.Decimal `json:"revenue"`
	StatusCounts    map[string]int  `json:"status_counts"`
	Items           []ItemSummary   `json:"items"`
	ConfirmedOrders int             `json:"confirmed_orders"`
	PendingOrders   int             `json:"pending_orders"`
	CollectedOrders int             `json:"collected_orders"`
}

type DayBreakdown struct {
	Date    string          `json:"date"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

type RangeStats struct {
	StartDate    string          `json:"start_date"`
	EndDate      string          `json:"end_date"`
	TotalOrders  int             `json:"total_orders"`
	Revenue      decimal.Decimal `json:"revenue"`
	StatusCounts map[string]int  `json:"status_counts"`
	Items        []ItemSummary   `json:"items"`
	Daily        []DayBreakdown  `json:"daily"`
}

// Aggregator answers the read-only analytics queries. All day bucketing
// happens in loc.
type Aggregator struct {
	store AnalyticsStore
	cache StatsCache
	loc   *time.Location
	now   func() time.Time
}

// NewAggregator creates a new Aggregator.
func NewAggregator(store AnalyticsStore, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{store: store, loc: loc, now: time.Now}
}

// SetCache enables memoization of the dashboard.
func (a *Aggregator) SetCache(c StatsCache) {
	a.cache = c
}

func (a *Aggregator) Dashboard(ctx context.Context) (*DashboardStats, error) {
	now := a.now()
	// Today's figures, the trend and upcoming collections roll over at
	// local midnight.
	key := dashboardCacheKey + ":" + now.In(a.loc).Format(dateLayout)

	var gen int64
	cacheable := false
	if a.cache != nil {
		var cached DashboardStats
		g, ok, err := a.cache.Get(ctx, key, &cached)
		switch {
		case err != nil:
			log.Printf("ERROR: read dashboard cache: %v", err)
		case ok:
			return &cached, nil
		default:
			gen, cacheable = g, true
		}
	}

	orders, err := a.loadOrders(ctx)
	if err != nil {
		return nil, err
	}
	guests, err := a.store.CountActiveGuests(ctx)
	if err != nil {
		return nil, fmt.Errorf("count guests: %w", err)
	}

	stats := buildDashboard(orders, guests, now, a.loc)
	if cacheable {
		if err := a.cache.Set(ctx, gen, key, stats); err != nil {
			log.Printf("ERROR: write dashboard cache: %v", err)
		}
	}
	return stats, nil
}

// Daily summarizes orders collected on date (YYYY-MM-DD); empty means today.
func (a *Aggregator) Daily(ctx context.Context, date string) (*DailyStats, error) {
	day := a.now().In(a.loc)
	if strings.TrimSpace(date) != "" {
		d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), a.loc)
		if err != nil {
			return nil, ErrInvalidDate
		}
		day = d
	}
	start, end := dayBounds(day, a.loc)

	orders, err := a.loadOrdersCollectedBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return buildDaily(orders, start), nil
}

// Range summarizes orders collected between two inclusive local days.
func (a *Aggregator) Range(ctx context.Context, startDate, endDate string) (*RangeStats, error) {
	startDate, endDate = strings.TrimSpace(startDate), strings.TrimSpace(endDate)
	if startDate == "" || endDate == "" {
		return nil, ErrDateRangeRequired
	}
	first, err := time.ParseInLocation(dateLayout, startDate, a.loc)
	if err != nil {
		return nil, ErrInvalidDate
	}
	last, err := time.ParseInLocation(dateLayout, endDate, a.loc)
	if err != nil {
		return nil, ErrInvalidDate
	}
	if last.Before(first) {
		return nil, ErrInvalidDateRange
	}

	start, _ := dayBounds(first, a.loc)
	_, end := dayBounds(last, a.loc)
	orders, err := a.loadOrdersCollectedBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return buildRange(orders, start, end, a.loc), nil
}

func (a *Aggregator) loadOrders(ctx context.Context) ([]*Order, error) {
	rows, err := a.store.ListActiveOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return decodeActive(rows)
}

func (a *Aggregator) loadOrdersCollectedBetween(ctx context.Context, start, end time.Time) ([]*Order, error) {
	rows, err := a.store.ListActiveOrdersByCollectionDate(ctx, database.ListActiveOrdersByCollectionDateParams{
		Start: start,
		End:   end,
	})
	if err != nil {
		return nil, fmt.Errorf("list orders by collection date: %w", err)
	}
	return decodeActive(rows)
}

func decodeActive(rows []database.Order) ([]*Order, error) {
	orders := make([]*Order, 0, len(rows))
	for _, row := range rows {
		if row.IsDeleted {
			continue
		}
		o, err := orderFromRow(row)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// --- Pure aggregation ---

func buildDashboard(orders []*Order, guests int64, now time.Time, loc *time.Location) *DashboardStats {
	todayStart, todayEnd := dayBounds(now, loc)

	stats := &DashboardStats{
		TotalRevenue:        decimal.Zero,
		TotalCollected:      decimal.Zero,
		AverageOrderValue:   decimal.Zero,
		TodayRevenue:        decimal.Zero,
		StatusCounts:        emptyStatusCounts(),
		TopItems:            []ItemSummary{},
		UpcomingCollections: []UpcomingCollection{},
		TotalGuests:         guests,
		GeneratedAt:         now,
	}

	trendStart := todayStart.AddDate(0, 0, -(trendDays - 1))
	stats.Trend = make([]TrendPoint, trendDays)
	trendIndex := make(map[string]int, trendDays)
	for i := 0; i < trendDays; i++ {
		key := trendStart.AddDate(0, 0, i).Format(dateLayout)
		stats.Trend[i] = TrendPoint{Date: key, Revenue: decimal.Zero}
		trendIndex[key] = i
	}

	items := newItemTally()
	upcomingEnd := now.Add(upcomingWindow)
	for _, o := range orders {
		stats.TotalOrders++
		stats.TotalRevenue = stats.TotalRevenue.Add(o.TotalAmount)
		stats.TotalCollected = stats.TotalCollected.Add(o.TotalPaid)
		stats.StatusCounts[o.Status]++

		if within(o.CreatedAt, todayStart, todayEnd) {
			stats.TodayOrders++
			stats.TodayRevenue = stats.TodayRevenue.Add(o.TotalAmount)
		}
		if i, ok := trendIndex[o.CreatedAt.In(loc).Format(dateLayout)]; ok {
			stats.Trend[i].Orders++
			stats.Trend[i].Revenue = stats.Trend[i].Revenue.Add(o.TotalAmount)
		}

		items.add(o.Items)

		if (o.Status == enum.OrderStatusPending || o.Status == enum.OrderStatusConfirmed) &&
			within(o.CollectionDate, todayStart, upcomingEnd) {
			stats.UpcomingCollections = append(stats.UpcomingCollections, UpcomingCollection{
				OrderID:        o.ID,
				OrderNumber:    o.OrderNumber,
				GuestName:      o.GuestDetails.Name,
				CollectionDate: o.CollectionDate,
				CollectionTime: o.CollectionTime,
				Status:         o.Status,
				TotalAmount:    o.TotalAmount,
			})
		}
	}

	if stats.TotalOrders > 0 {
		stats.AverageOrderValue = stats.TotalRevenue.Div(decimal.NewFromInt(int64(stats.TotalOrders))).Round(2)
	}

	top := items.summaries()
	sort.SliceStable(top, func(i, j int) bool { return top[i].Quantity > top[j].Quantity })
	if len(top) > topItemsLimit {
		top = top[:topItemsLimit]
	}
	stats.TopItems = top

	up := stats.UpcomingCollections
	sort.SliceStable(up, func(i, j int) bool {
		if !up[i].CollectionDate.Equal(up[j].CollectionDate) {
			return up[i].CollectionDate.Before(up[j].CollectionDate)
		}
		return up[i].CollectionTime < up[j].CollectionTime
	})
	if len(up) > upcomingLimit {
		stats.UpcomingCollections = up[:upcomingLimit]
	}
	return stats
}

// buildDaily expects orders already filtered to the day starting at start.
func buildDaily(orders []*Order, start time.Time) *DailyStats {
	stats := &DailyStats{
		Date:         start.Format(dateLayout),
		Revenue:      decimal.Zero,
		StatusCounts: emptyStatusCounts(),
	}
	items := newItemTally()
	for _, o := range orders {
		stats.TotalOrders++
		stats.Revenue = stats.Revenue.Add(o.TotalPaid)
		stats.StatusCounts[o.Status]++
		items.add(o.Items)
	}
	stats.Items = items.summaries()
	stats.ConfirmedOrders = stats.StatusCounts[enum.OrderStatusConfirmed]
	stats.PendingOrders = stats.StatusCounts[enum.OrderStatusPending]
	stats.CollectedOrders = stats.StatusCounts[enum.OrderStatusCollected]
	return stats
}

// buildRange aggregates orders collected in [start, end]. Days without
// orders are left out of the breakdown.
func buildRange(orders []*Order, start, end time.Time, loc *time.Location) *RangeStats {
	stats := &RangeStats{
		StartDate:    start.In(loc).Format(dateLayout),
		EndDate:      end.In(loc).Format(dateLayout),
		Revenue:      decimal.Zero,
		StatusCounts: emptyStatusCounts(),
		Daily:        []DayBreakdown{},
	}
	items := newItemTally()
	byDay := map[string]*DayBreakdown{}
	for _, o := range orders {
		if !within(o.CollectionDate, start, end) {
			continue
		}
		stats.TotalOrders++
		stats.Revenue = stats.Revenue.Add(o.TotalPaid)
		stats.StatusCounts[o.Status]++
		items.add(o.Items)

		key := o.CollectionDate.In(loc).Format(dateLayout)
		day, ok := byDay[key]
		if !ok {
			day = &DayBreakdown{Date: key, Revenue: decimal.Zero}
			byDay[key] = day
		}
		day.Orders++
		day.Revenue = day.Revenue.Add(o.TotalPaid)
	}

	for _, day := range byDay {
		stats.Daily = append(stats.Daily, *day)
	}
	sort.Slice(stats.Daily, func(i, j int) bool { return stats.Daily[i].Date < stats.Daily[j].Date })
	stats.Items = items.summaries()
	return stats
}

// itemTally groups order lines by name and serving size, keeping
// first-seen order.
type itemTally struct {
	index map[string]int
	items []ItemSummary
}

func newItemTally() *itemTally {
	return &itemTally{index: map[string]int{}}
}

func (t *itemTally) add(lines []OrderItem) {
	for _, it := range lines {
		key := it.Name + " - " + it.ServingSize
		i, ok := t.index[key]
		if !ok {
			i = len(t.items)
			t.index[key] = i
			t.items = append(t.items, ItemSummary{Name: it.Name, ServingSize: it.ServingSize, Revenue: decimal.Zero})
		}
		t.items[i].Quantity += int64(it.Quantity)
		t.items[i].Revenue = t.items[i].Revenue.Add(it.TotalPrice)
	}
}

func (t *itemTally) summaries() []ItemSummary {
	out := make([]ItemSummary, len(t.items))
	copy(out, t.items)
	return out
}

func emptyStatusCounts() map[string]int {
	counts := make(map[string]int, len(enum.OrderStatuses))
	for _, s := range enum.OrderStatuses {
		counts[s] = 0
	}
	return counts
}

// dayBounds returns 00:00:00.000 and 23:59:59.999 of t's calendar day in loc.
func dayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1).Add(-time.Millisecond)
	return start, end
}

func within(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
