package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	tournamenthttp "tandem/contexts/competition/tournament-engine/transport/http"

	sse "github.com/alexandrevicenzi/go-sse"
)

const tournamentChannelPrefix = "/events/tournaments/"

// LiveEvents streams tournament read models to browsers. Each tournament has
// its own channel at /events/tournaments/{id}.
type LiveEvents struct {
	server *sse.Server
	logger *slog.Logger
}

func NewLiveEvents(logger *slog.Logger) *LiveEvents {
	if logger == nil {
		logger = slog.Default()
	}
	return &LiveEvents{
		server: sse.NewServer(&sse.Options{
			Logger: slog.NewLogLogger(logger.Handler(), slog.LevelDebug),
		}),
		logger: logger,
	}
}

func (l *LiveEvents) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	l.server.ServeHTTP(w, r)
}

// PublishTournament sends state to the tournament's channel. Channels with no
// subscribers are skipped.
func (l *LiveEvents) PublishTournament(tournamentID string, state tournamenthttp.TournamentStateResponse) {
	channel := tournamentChannelPrefix + tournamentID
	if !l.server.HasChannel(channel) {
		return
	}
	data, err := json.Marshal(state)
	if err != nil {
		l.logger.Error("live event encode failed",
			"event", "http_live_event_encode_failed",
			"module", "internal/platform/httpserver",
			"layer", "transport",
			"tournament_id", tournamentID,
			"error", err.Error(),
		)
		return
	}
	l.server.SendMessage(channel, sse.NewMessage(state.Tournament.UpdatedAt, string(data), "tournament.state"))
}

func (l *LiveEvents) Close() {
	l.server.Shutdown()
}
