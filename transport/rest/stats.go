package rest

import (
	"encoding/json"
	"net/http"

	"github.com/rocketscienceinc/tictactoe-arena/internal/repository"
)

type statsResponse struct {
	Games     int64 `json:"games"`
	Wins      int64 `json:"wins"`
	Draws     int64 `json:"draws"`
	Abandoned int64 `json:"abandoned"`

	LiveGames     int     `json:"live_games"`
	OnlinePlayers int     `json:"online_players"`
	WaitingPlayer *string `json:"waiting_player"`

	Recent []repository.GameResult `json:"recent"`
}

func (that *Server) statsHandler(w http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "statsHandler")

	ctx := req.Context()

	totals, err := that.stats.Totals(ctx)
	if err != nil {
		log.Error("failed to load totals", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}

	recent, err := that.stats.Recent(ctx, 0)
	if err != nil {
		log.Error("failed to load recent results", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}

	if recent == nil {
		recent = []repository.GameResult{}
	}

	payload := statsResponse{
		Games:     totals.Games,
		Wins:      totals.Wins,
		Draws:     totals.Draws,
		Abandoned: totals.Abandoned,

		LiveGames:     that.game.LiveSessions(),
		OnlinePlayers: that.game.OnlinePlayers(),

		Recent: recent,
	}

	if waiting := that.game.Waiting(); waiting != nil {
		payload.WaitingPlayer = &waiting.Username
	}

	w.Header().Set("Content-Type", "application/json")

	if err = json.NewEncoder(w).Encode(payload); err != nil {
		log.Error("failed to encode response", "error", err)
	}
}
