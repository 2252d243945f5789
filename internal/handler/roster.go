package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Gopher0727/GuildWar/internal/model"
	"github.com/Gopher0727/GuildWar/internal/remote"
	"github.com/Gopher0727/GuildWar/internal/roster"
	logger "github.com/Gopher0727/GuildWar/middleware/log"
)

// RosterService is the slice of the roster engine the HTTP layer drives.
type RosterService interface {
	FetchEvent(ctx context.Context, region model.Region, force bool) error
	Snapshot(region model.Region) (*model.Snapshot, error)
	Day(region model.Region, day model.Day) (roster.DayView, error)
	Move(ctx context.Context, region model.Region, memberID int64, from, to model.Container) error
	AddTeam(ctx context.Context, region model.Region, name string, day model.Day, description string) (*model.Team, error)
	RenameTeam(ctx context.Context, region model.Region, teamID int64, name string) error
	DeleteTeam(ctx context.Context, region model.Region, teamID int64) error
	DeleteUser(ctx context.Context, region model.Region, userID int64) error
	CreateEvent(ctx context.Context, region model.Region) error
	RegisterUser(ctx context.Context, reg roster.Registration) (*remote.User, error)
}

type RosterHandler struct {
	roster RosterService
	logger *logger.Logger
	now    func() time.Time
}

func NewRosterHandler(svc RosterService, log *logger.Logger) *RosterHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &RosterHandler{
		roster: svc,
		logger: log.WithFields(zap.String("component", "roster_handler")),
		now:    time.Now,
	}
}

type moveRequest struct {
	MemberID int64           `json:"memberId" binding:"required"`
	From     model.Container `json:"from"`
	To       model.Container `json:"to"`
}

type addTeamRequest struct {
	Name        string    `json:"name"`
	Day         model.Day `json:"day"`
	Description string    `json:"description"`
}

type renameTeamRequest struct {
	Name string `json:"name" binding:"required"`
}

// GetEvent returns the region snapshot, fetching it when stale or when
// force=true is given.
func (h *RosterHandler) GetEvent(c *gin.Context) {
	region, ok := h.region(c)
	if !ok {
		return
	}
	force, _ := strconv.ParseBool(c.Query("force"))
	h.refresh(c, region, force)

	snap, err := h.roster.Snapshot(region)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *RosterHandler) GetDay(c *gin.Context) {
	region, ok := h.region(c)
	if !ok {
		return
	}
	day, ok := h.day(c)
	if !ok {
		return
	}
	h.refresh(c, region, false)

	view, err := h.roster.Day(region, day)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetOverview returns the availability grid of a day together with the
// current time in the region's reference zone.
func (h *RosterHandler) GetOverview(c *gin.Context) {
	region, ok := h.region(c)
	if !ok {
		return
	}
	day, ok := h.day(c)
	if !ok {
		return
	}
	h.refresh(c, region, false)

	snap, err := h.roster.Snapshot(region)
	if err != nil {
		h.writeError(c, err)
		return
	}

	now := h.now()
	if loc, err := time.LoadLocation(region.TimeZone()); err == nil {
		now = now.In(loc)
	}
	c.JSON(http.StatusOK, gin.H{
		"region":     region,
		"serverTime": now.Format(time.RFC3339),
		"timeZone":   region.TimeZone(),
		"grid":       roster.Overview(snap, day),
	})
}

func (h *RosterHandler) Signup(c *gin.Context) {
	var reg roster.Registration
	if err := c.ShouldBindJSON(&reg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.roster.RegisterUser(c.Request.Context(), reg)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Signed up successfully", "user": user})
}

func (h *RosterHandler) CreateEvent(c *gin.Context) {
	region, ok := h.region(c)
	if !ok {
		return
	}
	if err := h.roster.CreateEvent(c.Request.Context(), region); err != nil {
		h.writeError(c, err)
		return
	}
	h.writeSnapshot(c, http.StatusCreated, region)
}

func (h *RosterHandler) Move(c *gin.Context) {
	region, ok := h.region(c)
	if !ok {
		return
	}
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.roster.Move(c.Request.Context(), region, req.MemberID, req.From, req.To); err != nil {
		h.writeError(c, err)
		return
	}
	h.writeSnapshot(c, http.StatusOK, region)
}

func (h *RosterHandler) AddTeam(c *gin.Context) {
	region, ok := h.region(c)
	if !ok {
		return
	}
	var req addTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	team, err := h.roster.AddTeam(c.Request.Context(), region, req.Name, req.Day, req.Description)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, team)
}

func (h *RosterHandler) RenameTeam(c *gin.Context) {
	region, ok := h.region(c)
	if !ok {
		return
	}
	id, ok := h.id(c)
	if !ok {
		return
	}
	var req renameTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.roster.RenameTeam(c.Request.Context(), region, id, req.Name); err != nil {
		h.writeError(c, err)
		return
	}
	h.writeSnapshot(c, http.StatusOK, region)
}

func (h *RosterHandler) DeleteTeam(c *gin.Context) {
	region, ok := h.region(c)
	if !ok {
		return
	}
	id, ok := h.id(c)
	if !ok {
		return
	}
	if err := h.roster.DeleteTeam(c.Request.Context(), region, id); err != nil {
		h.writeError(c, err)
		return
	}
	h.writeSnapshot(c, http.StatusOK, region)
}

func (h *RosterHandler) DeleteUser(c *gin.Context) {
	region, ok := h.region(c)
	if !ok {
		return
	}
	id, ok := h.id(c)
	if !ok {
		return
	}
	if err := h.roster.DeleteUser(c.Request.Context(), region, id); err != nil {
		h.writeError(c, err)
		return
	}
	h.writeSnapshot(c, http.StatusOK, region)
}

// refresh fills the region cache shared by every viewer. The fetch is
// detached from the request, so a client hanging up does not record
// "context canceled" on the region. A failure stays on the snapshot and
// the cached data is still served.
func (h *RosterHandler) refresh(c *gin.Context, region model.Region, force bool) {
	ctx := context.WithoutCancel(c.Request.Context())
	if err := h.roster.FetchEvent(ctx, region, force); err != nil {
		h.logger.WithRegion(string(region)).WarnContext(ctx, "event fetch failed", zap.Error(err))
	}
}

func (h *RosterHandler) writeSnapshot(c *gin.Context, status int, region model.Region) {
	snap, err := h.roster.Snapshot(region)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(status, snap)
}

func (h *RosterHandler) region(c *gin.Context) (model.Region, bool) {
	region, err := model.ParseRegion(c.Param("region"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return region, true
}

func (h *RosterHandler) day(c *gin.Context) (model.Day, bool) {
	day, err := model.ParseDay(c.Param("day"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return day, true
}

func (h *RosterHandler) id(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func (h *RosterHandler) writeError(c *gin.Context, err error) {
	var apiErr *remote.APIError
	switch {
	case roster.IsValidation(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, roster.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, roster.ErrEventNotLoaded):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrUnknownRegion), errors.Is(err, model.ErrUnknownDay):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &apiErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": apiErr.Message, "status": apiErr.Status})
	default:
		h.logger.ErrorContext(c.Request.Context(), "roster operation failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
