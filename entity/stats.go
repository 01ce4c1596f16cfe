package entity

type StatsOverview struct {
	TotalChats  int            `json:"total_chats"`
	ActiveChats int            `json:"active_chats"`
	NewToday    int            `json:"new_today"`
	ClosedTotal int            `json:"closed_total"`
	AvgRating   *float64       `json:"avg_rating"`
	ByChannel   map[string]int `json:"by_channel"`
	ByStatus    map[string]int `json:"by_status"`
}

type ManagerStats struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Role         string   `json:"role"`
	Status       string   `json:"status"`
	TotalChats   int      `json:"total_chats"`
	ActiveChats  int      `json:"active_chats"`
	ClosedChats  int      `json:"closed_chats"`
	AvgRating    *float64 `json:"avg_rating"`
	RatingsCount int      `json:"ratings_count"`
}

type TimelineItem struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type Timeline struct {
	Timeline []TimelineItem `json:"timeline"`
}

type RatingsStats struct {
	Distribution map[string]int `json:"distribution"`
	AvgRating    *float64       `json:"avg_rating"`
	TotalRatings int            `json:"total_ratings"`
}
