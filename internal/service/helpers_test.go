package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"salesops-data/internal/domain"
	"salesops-data/internal/repository"
)

var jst = time.FixedZone("JST", 9*60*60)

// fixedNow 2024-03-15 10:00 JST
func fixedNow() time.Time {
	return time.Date(2024, 3, 15, 10, 0, 0, 0, jst)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ns(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var (
	adminActor  = domain.Actor{ID: "u-admin", Name: "管理者", Role: domain.RoleAdmin}
	tanakaActor = domain.Actor{ID: "u-tanaka", Name: "田中", Role: domain.RoleMarketer, Team: "A"}
	suzukiActor = domain.Actor{ID: "u-suzuki", Name: "鈴木", Role: domain.RoleMarketer}
)

func seedRecord(t *testing.T, s repository.Store, rec domain.ContactRecord) string {
	t.Helper()
	if rec.Status == "" {
		rec.Status = domain.StatusNotReplied
	}
	id, err := s.SalesTracking().Create(context.Background(), &rec)
	require.NoError(t, err)
	return id
}

func seedPipeline(t *testing.T, s repository.Store, pc domain.PipelineCustomer) string {
	t.Helper()
	if pc.CompanyName == "" {
		pc.CompanyName = "株式会社テスト"
	}
	if pc.CustomerName == "" {
		pc.CustomerName = "山田"
	}
	if pc.Phone == "" {
		pc.Phone = "0312345678"
	}
	if pc.Status == "" {
		pc.Status = domain.StageStart
	}
	if pc.RegisteredAt.IsZero() {
		pc.RegisteredAt = day(2024, 3, 1)
	}
	id, err := s.Retargeting().Create(context.Background(), &pc)
	require.NoError(t, err)
	return id
}

func requireKind(t *testing.T, err error, kind Kind) *Error {
	t.Helper()
	require.Error(t, err)
	var se *Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, kind, se.Kind, "error: %v", err)
	return se
}
