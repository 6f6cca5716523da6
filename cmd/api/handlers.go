package main

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"attendgw/internal/attendance"
	"attendgw/internal/auth"
	"attendgw/internal/config"
	"attendgw/internal/history"
	"attendgw/internal/metrics"
	"attendgw/internal/odoo"
	"attendgw/internal/queue"
	"attendgw/internal/store"
)

type api struct {
	cfg      config.App
	odoo     *odoo.Client
	sessions *store.SessionStore
	repo     *history.Repository
	queue    queue.Queue
}

func (a *api) registerDevice(c *gin.Context) {
	var req struct {
		DeviceID string `json:"device_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tokens, err := auth.Issue(req.DeviceID, "device", a.cfg.JWTIssuer, a.cfg.JWTSigningKey, a.cfg.AccessTTL, a.cfg.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

// openSession authenticates the device user against Odoo and stores the
// resulting session keyed by device id.
func (a *api) openSession(c *gin.Context) {
	var req struct {
		Login  string `json:"login" binding:"required"`
		APIKey string `json:"api_key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	uid, err := a.odoo.Authenticate(ctx, req.Login, req.APIKey)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	sess := odoo.Session{UID: uid, Login: req.Login, APIKey: req.APIKey}
	employeeID, err := a.odoo.EmployeeID(ctx, sess)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	sess.EmployeeID = employeeID

	deviceID := auth.DeviceID(c)
	if err := a.sessions.Save(ctx, deviceID, store.DeviceSession{Odoo: sess}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session store failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"uid": uid, "employee_id": employeeID})
}

func (a *api) closeSession(c *gin.Context) {
	if err := a.sessions.Delete(c.Request.Context(), auth.DeviceID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session delete failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// reconciler builds a per-request reconciler for the device's session,
// restoring any previously discovered geo capability downgrade. A nil
// session yields a reconciler that short-circuits as not authenticated.
func (a *api) reconciler(ctx context.Context, deviceID string) (*attendance.Reconciler, *store.DeviceSession) {
	sess, err := a.sessions.Get(ctx, deviceID)
	if err != nil {
		log.Printf("session lookup failed for %s: %v", deviceID, err)
	}
	if sess == nil {
		return attendance.NewReconciler(nil, 0), nil
	}
	src := attendance.NewOdooSource(a.odoo, sess.Odoo)
	rec := attendance.NewReconciler(src, sess.Odoo.EmployeeID)
	if sess.GeoUnsupported {
		rec.SetGeoCapability(attendance.GeoUnsupported)
	}
	return rec, sess
}

// persistDowngrade writes a freshly discovered geo downgrade back to the
// session store so later requests skip the doomed first attempt.
func (a *api) persistDowngrade(ctx context.Context, deviceID string, rec *attendance.Reconciler, sess *store.DeviceSession) {
	if sess == nil || sess.GeoUnsupported || rec.GeoCapability() != attendance.GeoUnsupported {
		return
	}
	metrics.GeoDowngrades.Inc()
	sess.GeoUnsupported = true
	if err := a.sessions.Save(ctx, deviceID, *sess); err != nil {
		log.Printf("persisting geo downgrade failed for %s: %v", deviceID, err)
	}
}

func (a *api) attendanceStatus(c *gin.Context) {
	rec, sess := a.reconciler(c.Request.Context(), auth.DeviceID(c))
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	status := rec.Status(c.Request.Context())
	resp := gin.H{"is_checked_in": status.CheckedIn}
	if status.CheckedIn {
		resp["record_id"] = status.RecordID
		resp["check_in_time"] = odoo.FormatDatetime(status.CheckInTime)
		resp["elapsed"] = attendance.FormatElapsed(status.Elapsed(time.Now()))
	}
	c.JSON(http.StatusOK, resp)
}

type actionRequest struct {
	Photo     string   `json:"photo"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (a *api) checkIn(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	deviceID := auth.DeviceID(c)
	rec, sess := a.reconciler(ctx, deviceID)
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "not authenticated"})
		return
	}

	// Action choice follows the remote open record, never device-side state.
	if rec.Status(ctx).CheckedIn {
		c.JSON(http.StatusConflict, gin.H{"error": "already checked in"})
		return
	}

	res := rec.CheckIn(ctx, req.Latitude, req.Longitude)
	a.persistDowngrade(ctx, deviceID, rec, sess)
	a.finishAction(c, deviceID, sess, req, res)
}

func (a *api) checkOut(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	deviceID := auth.DeviceID(c)
	rec, sess := a.reconciler(ctx, deviceID)
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "not authenticated"})
		return
	}

	status := rec.Status(ctx)
	if !status.CheckedIn {
		c.JSON(http.StatusConflict, gin.H{"error": "no open attendance"})
		return
	}

	res := rec.CheckOut(ctx, status.RecordID, req.Latitude, req.Longitude)
	a.persistDowngrade(ctx, deviceID, rec, sess)
	a.finishAction(c, deviceID, sess, req, res)
}

// finishAction records metrics, mirrors the event, queues deferred photo
// work, and writes the HTTP response for a reconciliation result.
func (a *api) finishAction(c *gin.Context, deviceID string, sess *store.DeviceSession, req actionRequest, res attendance.Result) {
	action := res.Action
	if action == "" {
		action = "unknown"
	}
	if !res.Success {
		metrics.Actions.WithLabelValues(action, "failure").Inc()
		if res.Kind != attendance.FailureNotAuthenticated {
			metrics.RPCFailures.WithLabelValues(string(res.Kind)).Inc()
		}
		c.JSON(failureStatus(res.Kind), gin.H{"success": false, "error": res.Error})
		return
	}
	metrics.Actions.WithLabelValues(action, "success").Inc()

	ctx := c.Request.Context()
	evt, err := a.repo.InsertEvent(ctx, history.Event{
		EmployeeID: sess.Odoo.EmployeeID,
		DeviceID:   deviceID,
		Action:     res.Action,
		RecordID:   res.RecordID,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
	})
	if err != nil {
		// Mirror is best effort; the remote write already succeeded.
		log.Printf("event mirror insert failed: %v", err)
	} else if req.Photo != "" || req.Latitude != nil {
		msg, merr := queue.NewEventMessage(queue.EventJob{
			EventID:   evt.ID,
			Photo:     req.Photo,
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
		})
		if merr == nil {
			merr = a.queue.Publish(ctx, msg)
		}
		if merr != nil {
			log.Printf("queue publish failed: %v", merr)
		}
	}

	c.JSON(http.StatusOK, res)
}

func failureStatus(kind attendance.FailureKind) int {
	switch kind {
	case attendance.FailureNotAuthenticated:
		return http.StatusUnauthorized
	case attendance.FailureTransport:
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}

// attendanceHistory serves recent records from Odoo, falling back to the
// local mirror when the backend is unreachable.
func (a *api) attendanceHistory(c *gin.Context) {
	ctx := c.Request.Context()
	deviceID := auth.DeviceID(c)

	sess, err := a.sessions.Get(ctx, deviceID)
	if err != nil || sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	limit := 20
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	src := attendance.NewOdooSource(a.odoo, sess.Odoo)
	records, err := src.Recent(ctx, sess.Odoo.EmployeeID, limit, !sess.GeoUnsupported)
	if err != nil {
		log.Printf("odoo history failed, serving mirror: %v", err)
		events, merr := a.repo.ListByEmployee(ctx, sess.Odoo.EmployeeID, limit, 0)
		if merr != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"source": "mirror", "events": events})
		return
	}

	now := time.Now()
	rows := make([]gin.H, 0, len(records))
	for _, rec := range records {
		row := gin.H{
			"record_id": rec.ID,
			"check_in":  odoo.FormatDatetime(rec.CheckIn),
			"worked":    attendance.FormatElapsed(rec.Worked(now)),
		}
		if rec.CheckOut != nil {
			row["check_out"] = odoo.FormatDatetime(*rec.CheckOut)
		}
		if rec.InLatitude != nil && rec.InLongitude != nil {
			row["in_latitude"] = *rec.InLatitude
			row["in_longitude"] = *rec.InLongitude
		}
		rows = append(rows, row)
	}
	c.JSON(http.StatusOK, gin.H{"source": "odoo", "records": rows})
}
