package admin

import (
	"time"

	"sheetinsight-backend/internal/analyses"
	"sheetinsight-backend/internal/files"
	"sheetinsight-backend/internal/users"
)

// UserSummary is a user row in the admin list.
type UserSummary struct {
	users.User
	FilesUploaded int       `json:"filesUploaded"`
	AnalysesCount int       `json:"analysesCount"`
	StorageUsed   string    `json:"storageUsed"`
	LastActive    time.Time `json:"lastActive"`
}

// UserDetail is one user with everything they own.
type UserDetail struct {
	users.User
	Files         []files.File        `json:"files"`
	Analyses      []analyses.Analysis `json:"analyses"`
	TotalFiles    int                 `json:"totalFiles"`
	TotalAnalyses int                 `json:"totalAnalyses"`
	TotalStorage  string              `json:"totalStorage"`
}

// WeeklyStats counts what was created in the last seven days.
type WeeklyStats struct {
	NewUsers    int `json:"newUsers"`
	NewFiles    int `json:"newFiles"`
	NewAnalyses int `json:"newAnalyses"`
}

// Stats is the platform overview.
type Stats struct {
	TotalUsers     int                 `json:"totalUsers"`
	ActiveUsers    int                 `json:"activeUsers"`
	TotalFiles     int                 `json:"totalFiles"`
	TotalAnalyses  int                 `json:"totalAnalyses"`
	TotalStorage   string              `json:"totalStorage"`
	RecentUsers    []users.User        `json:"recentUsers"`
	RecentFiles    []files.File        `json:"recentFiles"`
	RecentAnalyses []analyses.Analysis `json:"recentAnalyses"`
	WeeklyStats    WeeklyStats         `json:"weeklyStats"`
}

// DailyCount is one day of a time series. ID is the YYYY-MM-DD date.
type DailyCount struct {
	ID        string `json:"_id"`
	Count     int    `json:"count"`
	TotalSize int64  `json:"totalSize,omitempty"`
}

// TopUser ranks users by files plus analyses.
type TopUser struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	Status        string `json:"status"`
	TotalFiles    int    `json:"totalFiles"`
	TotalAnalyses int    `json:"totalAnalyses"`
	TotalActivity int    `json:"totalActivity"`
}

// Analytics holds usage series for a period.
type Analytics struct {
	FileUploads       []DailyCount `json:"fileUploads"`
	UserRegistrations []DailyCount `json:"userRegistrations"`
	AnalysisCreation  []DailyCount `json:"analysisCreation"`
	TopUsers          []TopUser    `json:"topUsers"`
}
