package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
)

const codeAttempts = 10

// StandingsReader serves durable standings, e.g. the Redis scoreboard mirror.
type StandingsReader interface {
	Standings(ctx context.Context, code string) ([]domain.ScoreEntry, error)
}

type Config struct {
	Coordinator *app.Coordinator
	WS          *WSHandler
	Metrics     http.Handler
	// Standings is optional; without it standings come from the live room.
	Standings StandingsReader
	Pprof     bool
}

type API struct {
	coord     *app.Coordinator
	standings StandingsReader
}

// NewRouter builds the HTTP surface: the websocket gateway plus read-only room endpoints.
func NewRouter(c Config) *gin.Engine {
	a := &API{coord: c.Coordinator, standings: c.Standings}

	e := gin.New()
	if c.Metrics != nil {
		e.GET("/metrics", gin.WrapH(c.Metrics))
	}
	if c.Pprof {
		pprof.Register(e, "/debug/pprof")
	}
	e.Use(gin.Recovery())

	e.GET("/healthz", func(ctx *gin.Context) { ctx.String(http.StatusOK, "ok") })
	if c.WS != nil {
		e.GET("/ws", gin.WrapF(c.WS.ServeWS))
	}

	rooms := e.Group("/rooms")
	rooms.GET("", a.listRooms)
	rooms.POST("", a.suggestRoom)
	rooms.GET("/:code", a.getRoom)
	rooms.GET("/:code/scoreboard", a.getScoreboard)
	rooms.GET("/:code/standings", a.getStandings)
	return e
}

func (a *API) listRooms(c *gin.Context) {
	rooms, err := a.coord.Rooms(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// suggestRoom hands out a code that no open room uses. The room itself is created by the first join.
func (a *API) suggestRoom(c *gin.Context) {
	for i := 0; i < codeAttempts; i++ {
		code, err := domain.GenerateRoomCode()
		if err != nil {
			writeError(c, err)
			return
		}
		if _, err := a.coord.Snapshot(c.Request.Context(), code); errors.Is(err, domain.ErrRoomNotFound) {
			c.JSON(http.StatusCreated, gin.H{"roomCode": code})
			return
		}
	}
	c.JSON(http.StatusServiceUnavailable, domain.ErrorPayload{Message: "no free room code"})
}

func (a *API) getRoom(c *gin.Context) {
	snap, err := a.coord.Snapshot(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (a *API) getScoreboard(c *gin.Context) {
	board, err := a.coord.Scoreboard(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

func (a *API) getStandings(c *gin.Context) {
	if a.standings == nil {
		a.getScoreboard(c)
		return
	}
	board, err := a.standings.Standings(c.Request.Context(), domain.NormalizeRoomCode(c.Param("code")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrRoomNotFound) {
		status = http.StatusNotFound
	}
	c.JSON(status, domain.ErrorPayload{Message: err.Error()})
}
