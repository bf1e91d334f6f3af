package domain

// Stats is the admin dashboard summary
type Stats struct {
	TotalGroups    int        `json:"totalGroups"`
	TotalQuestions int        `json:"totalQuestions"`
	TotalAnswers   int        `json:"totalAnswers"`
	Usage          UsageStats `json:"usage"`
	Connections    int        `json:"connections"`
	ActiveRooms    int        `json:"activeRooms"`
}

// UsageListResponse is the admin view of recent usage records
type UsageListResponse struct {
	Records []*UsageRecord `json:"records"`
	Total   int            `json:"total"`
}
