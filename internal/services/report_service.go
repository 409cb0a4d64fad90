package services

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"crm-service/internal/models"
	"crm-service/internal/redis"
	"crm-service/internal/repository"
	"crm-service/internal/scope"
)

// DashboardMetrics is the computed dashboard payload. No persisted state:
// everything derives from the scoped entity collections on every cache miss.
type DashboardMetrics struct {
	Revenue        float64          `json:"revenue"`
	ConversionRate int              `json:"conversion_rate"`
	Funnel         map[string]int   `json:"funnel"`
	MonthlyRevenue []MonthlyRevenue `json:"monthly_revenue"`
	OpenTasks      int              `json:"open_tasks"`
	TotalLeads     int              `json:"total_leads"`
	ActiveDeals    int              `json:"active_deals"`
}

// MonthlyRevenue is one calendar-month bucket of won deal revenue
type MonthlyRevenue struct {
	Month   string  `json:"month"` // YYYY-MM
	Revenue float64 `json:"revenue"`
}

// ReportService derives dashboard metrics from already-scoped collections.
// Results are cached per tenant scope in Redis and recomputed on miss;
// mutations elsewhere invalidate the mutated tenant's keys.
type ReportService struct {
	leadRepo *repository.LeadRepository
	dealRepo *repository.DealRepository
	taskRepo *repository.TaskRepository
	cache    *redis.Client
	cacheTTL time.Duration
	window   int
	log      *logrus.Entry
}

// NewReportService creates a new report service. cache may be nil; metrics
// are then recomputed on every read.
func NewReportService(
	leadRepo *repository.LeadRepository,
	dealRepo *repository.DealRepository,
	taskRepo *repository.TaskRepository,
	cache *redis.Client,
	cacheTTL time.Duration,
	monthlyWindow int,
	log *logrus.Logger,
) *ReportService {
	return &ReportService{
		leadRepo: leadRepo,
		dealRepo: dealRepo,
		taskRepo: taskRepo,
		cache:    cache,
		cacheTTL: cacheTTL,
		window:   monthlyWindow,
		log:      log.WithField("component", "reports"),
	}
}

// Dashboard returns the dashboard metrics for the scope, from cache when
// fresh.
func (s *ReportService) Dashboard(ctx context.Context, sc *scope.Scope) (*DashboardMetrics, error) {
	key := redis.ReportKey(ScopeCacheID(sc), "dashboard")

	if s.cache != nil {
		var cached DashboardMetrics
		hit, err := s.cache.GetReport(ctx, key, &cached)
		if err != nil {
			s.log.WithError(err).Warn("report cache read failed")
		} else if hit {
			return &cached, nil
		}
	}

	leads, err := s.leadRepo.List(ctx, sc, repository.LeadFilters{})
	if err != nil {
		return nil, err
	}
	deals, err := s.dealRepo.List(ctx, sc, repository.DealFilters{})
	if err != nil {
		return nil, err
	}
	tasks, err := s.taskRepo.List(ctx, sc, repository.TaskFilters{Status: models.TaskStatusPending})
	if err != nil {
		return nil, err
	}

	metrics := ComputeDashboard(leads, deals, len(tasks), time.Now().UTC(), s.window)

	if s.cache != nil {
		if err := s.cache.SaveReport(ctx, key, metrics, s.cacheTTL); err != nil {
			s.log.WithError(err).Warn("report cache write failed")
		}
	}

	return metrics, nil
}

// Invalidate drops the cached views covering the mutated rows' tenants after
// a mutation, plus the cross-tenant admin view. Keying on the row's tenant
// rather than the acting scope matters: an unnarrowed admin writing into an
// explicit tenant must stale that tenant's cache, not only the "all" view.
func (s *ReportService) Invalidate(ctx context.Context, tenantIDs ...uuid.UUID) {
	if s.cache == nil {
		return
	}

	ids := make([]string, 0, len(tenantIDs))
	seen := make(map[uuid.UUID]struct{}, len(tenantIDs))
	for _, id := range tenantIDs {
		if id == uuid.Nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id.String())
	}

	if err := s.cache.InvalidateReports(ctx, ids...); err != nil {
		s.log.WithError(err).Warn("report cache invalidation failed")
	}
}

// ScopeCacheID maps a scope to its cache partition: the tenant UUID, or
// "all" for an unnarrowed admin view.
func ScopeCacheID(sc *scope.Scope) string {
	if t := sc.Tenant(); t != nil {
		return t.String()
	}
	return "all"
}

// ComputeDashboard derives every dashboard metric from the given collections.
// Pure function; now is the reference time for monthly bucketing.
func ComputeDashboard(leads []models.Lead, deals []models.Deal, openTasks int, now time.Time, window int) *DashboardMetrics {
	m := &DashboardMetrics{
		Funnel:     map[string]int{},
		OpenTasks:  openTasks,
		TotalLeads: len(leads),
	}

	for _, status := range models.ValidLeadStatuses {
		m.Funnel[status] = 0
	}

	for _, l := range leads {
		m.Funnel[l.Status]++
		if l.Status == models.LeadStatusWon {
			m.Revenue += l.Value
		}
	}

	var won, lost int
	for _, d := range deals {
		if d.Active {
			m.ActiveDeals++
		}
		switch d.Stage {
		case models.DealStageWon:
			won++
			m.Revenue += d.Value
		case models.DealStageLost:
			lost++
		}
	}

	m.ConversionRate = ConversionRate(won, lost)
	m.MonthlyRevenue = MonthlyBuckets(deals, now, window)

	return m
}

// ConversionRate returns won/(won+lost) as a percentage rounded to the
// nearest integer, 0 when there are no terminal deals.
func ConversionRate(won, lost int) int {
	total := won + lost
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(won) / float64(total) * 100))
}

// MonthlyBuckets groups won deals by calendar month of creation into a fixed
// trailing window ending at now's month. Months with no data report zero
// rather than being absent.
func MonthlyBuckets(deals []models.Deal, now time.Time, window int) []MonthlyRevenue {
	if window <= 0 {
		window = 6
	}

	// normalize to the first of the month so month arithmetic never skips
	base := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	buckets := make([]MonthlyRevenue, window)
	index := make(map[string]int, window)
	for i := 0; i < window; i++ {
		month := base.AddDate(0, i-(window-1), 0)
		key := month.Format("2006-01")
		buckets[i] = MonthlyRevenue{Month: key}
		index[key] = i
	}

	for _, d := range deals {
		if d.Stage != models.DealStageWon {
			continue
		}
		key := d.CreatedAt.Format("2006-01")
		if i, ok := index[key]; ok {
			buckets[i].Revenue += d.Value
		}
	}

	return buckets
}
