package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"neuriax/internal/apperror"
	"neuriax/internal/dto"
	"neuriax/internal/money"
	"neuriax/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type StatsService interface {
	Summary(ctx context.Context, tenantID uuid.UUID, filter dto.StatsFilter) (*dto.StatsResponse, error)
}

type statsService struct {
	repo     repository.StatsRepository
	rdb      *redis.Client // nil: no caching
	cacheTTL time.Duration
}

func NewStatsService(repo repository.StatsRepository, rdb *redis.Client, cacheTTL time.Duration) StatsService {
	return &statsService{repo: repo, rdb: rdb, cacheTTL: cacheTTL}
}

// Summary aggregates cash and invoicing rollups for a date range. Results are
// cached briefly in Redis: the dashboards poll, and a short staleness window
// is acceptable for derived reporting.
func (s *statsService) Summary(ctx context.Context, tenantID uuid.UUID, filter dto.StatsFilter) (*dto.StatsResponse, error) {
	from, to, err := parseRange(filter)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("stats:%s:%s:%s", tenantID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var cached dto.StatsResponse
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return &cached, nil
			}
		}
	}

	cash, err := s.repo.CashTotals(ctx, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	invoicing, err := s.repo.InvoiceTotals(ctx, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	aging, err := s.repo.OverdueAging(ctx, tenantID, time.Now())
	if err != nil {
		return nil, err
	}

	resp := &dto.StatsResponse{
		From:    from.Format("2006-01-02"),
		To:      to.Format("2006-01-02"),
		CashIn:  money.Finalize(cash.In),
		CashOut: money.Finalize(cash.Out),
		NetCash: money.Finalize(cash.In.Sub(cash.Out)),
		ByMethod: dto.MethodBreakdown{
			Cash:     money.Finalize(cash.ByMethod["cash"]),
			Card:     money.Finalize(cash.ByMethod["card"]),
			Transfer: money.Finalize(cash.ByMethod["transfer"]),
		},
		Sessions:       cash.Sessions,
		InvoicedTotal:  money.Finalize(invoicing.Invoiced),
		CollectedTotal: money.Finalize(invoicing.Collected),
		CollectionRate: collectionRate(invoicing.Collected, invoicing.Invoiced),
		InvoiceCount:   invoicing.Count,
		OverdueAging:   make([]dto.OverdueAgingBucket, 0, len(aging)),
	}
	for _, row := range aging {
		resp.OverdueAging = append(resp.OverdueAging, dto.OverdueAgingBucket{
			Bucket: row.Bucket,
			Count:  row.Count,
			Amount: money.Finalize(row.Outstanding),
		})
	}

	if s.rdb != nil {
		if data, err := json.Marshal(resp); err == nil {
			if err := s.rdb.Set(ctx, cacheKey, data, s.cacheTTL).Err(); err != nil {
				log.Warn().Err(err).Str("key", cacheKey).Msg("stats cache write failed")
			}
		}
	}
	return resp, nil
}

// collectionRate = collected / invoiced at 4 decimals; zero when nothing was
// invoiced rather than a division error.
func collectionRate(collected, invoiced decimal.Decimal) decimal.Decimal {
	if invoiced.IsZero() {
		return decimal.Zero
	}
	return collected.DivRound(invoiced, 4)
}

func parseRange(filter dto.StatsFilter) (time.Time, time.Time, error) {
	now := time.Now()
	// Default: current calendar month.
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 1, 0)

	if filter.From != "" {
		parsed, err := time.ParseInLocation("2006-01-02", filter.From, now.Location())
		if err != nil {
			return time.Time{}, time.Time{}, apperror.Validation(apperror.CodeInvalidAmount,
				"invalid from date %q (want YYYY-MM-DD)", filter.From)
		}
		from = parsed
	}
	if filter.To != "" {
		parsed, err := time.ParseInLocation("2006-01-02", filter.To, now.Location())
		if err != nil {
			return time.Time{}, time.Time{}, apperror.Validation(apperror.CodeInvalidAmount,
				"invalid to date %q (want YYYY-MM-DD)", filter.To)
		}
		to = parsed
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, apperror.Validation(apperror.CodeInvalidAmount,
			"empty date range: %s..%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	}
	return from, to, nil
}
