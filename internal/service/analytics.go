package service

import (
	"context"
	"time"

	"github.com/crafted-exteriors/crm-api/internal/repository"
)

// AnalyticsService summarizes traffic and CRM volume for the admin dashboard.
type AnalyticsService struct {
	logs  *repository.RequestLogRepository
	leads *repository.LeadRepository
}

func NewAnalyticsService(logs *repository.RequestLogRepository, leads *repository.LeadRepository) *AnalyticsService {
	return &AnalyticsService{
		logs:  logs,
		leads: leads,
	}
}

// Holds analytics summary data
type AnalyticsSummary struct {
	TotalRequests   int64                    `json:"total_requests"`
	AvgResponseTime float64                  `json:"avg_response_time_ms"`
	SuccessRate     float64                  `json:"success_rate"`
	ClientErrorRate float64                  `json:"client_error_rate"`
	ServerErrorRate float64                  `json:"server_error_rate"`
	RateLimited     int64                    `json:"rate_limited"`
	BotRejected     int64                    `json:"bot_rejected"`
	TopPaths        []map[string]interface{} `json:"top_paths"`
	LeadsByStatus   map[string]int64         `json:"leads_by_status"`
}

// GetSummary aggregates request logs and lead counts for a time range.
func (s *AnalyticsService) GetSummary(ctx context.Context, from, to time.Time, statuses []string) (*AnalyticsSummary, error) {
	summary := &AnalyticsSummary{
		LeadsByStatus: make(map[string]int64),
	}

	totalRequests, err := s.logs.CountByTimeRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	summary.TotalRequests = totalRequests

	for _, status := range statuses {
		count, err := s.leads.CountByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		summary.LeadsByStatus[status] = count
	}

	if totalRequests == 0 {
		return summary, nil
	}

	avgResponseTime, err := s.logs.GetAverageResponseTime(ctx, from, to)
	if err != nil {
		return nil, err
	}
	summary.AvgResponseTime = avgResponseTime

	clientErrors, err := s.logs.CountByStatusCodeRange(ctx, 400, 499, from, to)
	if err != nil {
		return nil, err
	}

	serverErrors, err := s.logs.CountByStatusCodeRange(ctx, 500, 599, from, to)
	if err != nil {
		return nil, err
	}

	rateLimited, err := s.logs.CountByStatusCodeRange(ctx, 429, 429, from, to)
	if err != nil {
		return nil, err
	}
	summary.RateLimited = rateLimited

	botRejected, err := s.logs.CountByStatusCodeRange(ctx, 403, 403, from, to)
	if err != nil {
		return nil, err
	}
	summary.BotRejected = botRejected

	totalErrors := clientErrors + serverErrors
	summary.SuccessRate = 100 - (float64(totalErrors)/float64(totalRequests))*100
	summary.ClientErrorRate = (float64(clientErrors) / float64(totalRequests)) * 100
	summary.ServerErrorRate = (float64(serverErrors) / float64(totalRequests)) * 100

	topPaths, err := s.logs.GetTopPaths(ctx, from, to, 10)
	if err != nil {
		return nil, err
	}
	summary.TopPaths = topPaths

	return summary, nil
}

// GetLogs retrieves raw request logs with pagination.
func (s *AnalyticsService) GetLogs(ctx context.Context, from, to time.Time, limit, offset int) (interface{}, error) {
	return s.logs.FindByTimeRange(ctx, from, to, limit, offset)
}

// CleanupOldLogs deletes logs older than the retention period.
func (s *AnalyticsService) CleanupOldLogs(ctx context.Context, retentionDays int) (int64, error) {
	cutOffDate := time.Now().AddDate(0, 0, -retentionDays)
	return s.logs.DeleteOldLogs(ctx, cutOffDate)
}
