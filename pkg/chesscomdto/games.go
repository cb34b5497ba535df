package chesscomdto

// DTOs for the chess.com published-data API (api.chess.com/pub).

// ArchivesResponse lists the monthly archive URLs available for a player.
type ArchivesResponse struct {
	Archives []string `json:"archives"`
}

// MonthlyGamesResponse is the body of one monthly archive.
type MonthlyGamesResponse struct {
	Games []Game `json:"games"`
}

type Player struct {
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Result   string `json:"result"`
}

type Game struct {
	URL         string `json:"url"`
	PGN         string `json:"pgn"`
	TimeControl string `json:"time_control"`
	TimeClass   string `json:"time_class"`
	Rules       string `json:"rules"`
	EndTime     int64  `json:"end_time"`
	Rated       bool   `json:"rated"`
	White       Player `json:"white"`
	Black       Player `json:"black"`
}
