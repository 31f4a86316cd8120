package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"couplebot/internal/store"
	"couplebot/pkg/logx"
)

// ---- schedules ----

type ruleBody struct {
	Label     *string `json:"label"`
	TimeOfDay *string `json:"time_of_day"`
	Scope     *string `json:"scope"`
	Status    *string `json:"status"`
}

func (s *Server) handleListSchedules(c *gin.Context) {
	rules, err := s.store.ListRules(c.Request.Context())
	if err != nil {
		s.fail(c, "list schedules", err)
		return
	}
	c.JSON(http.StatusOK, rulesJSON(rules))
}

func (s *Server) handleCreateSchedule(c *gin.Context) {
	var body ruleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if body.Label == nil || strings.TrimSpace(*body.Label) == "" ||
		body.TimeOfDay == nil || strings.TrimSpace(*body.TimeOfDay) == "" ||
		body.Scope == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "label, time_of_day and scope are required"})
		return
	}

	rule := store.ScheduleRule{
		Label:     strings.TrimSpace(*body.Label),
		TimeOfDay: strings.TrimSpace(*body.TimeOfDay),
		Scope:     store.RecipientScope(*body.Scope),
		Status:    store.StatusActive,
	}
	if body.Status != nil {
		rule.Status = store.RuleStatus(*body.Status)
	}
	if !rule.Scope.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scope must be partner1, partner2 or both"})
		return
	}
	if rule.Status != store.StatusActive && rule.Status != store.StatusPaused {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be active or paused"})
		return
	}

	created, err := s.store.CreateRule(c.Request.Context(), rule)
	if err != nil {
		s.fail(c, "create schedule", err)
		return
	}
	if !s.rebuildAfterMutation(c) {
		return
	}
	c.JSON(http.StatusCreated, ruleJSON(created))
}

func (s *Server) handleUpdateSchedule(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule id"})
		return
	}
	var body ruleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	rule, err := s.store.GetRule(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "schedule not found"})
		return
	}
	if err != nil {
		s.fail(c, "update schedule", err)
		return
	}

	if body.Label != nil {
		rule.Label = strings.TrimSpace(*body.Label)
	}
	if body.TimeOfDay != nil {
		rule.TimeOfDay = strings.TrimSpace(*body.TimeOfDay)
	}
	if body.Scope != nil {
		rule.Scope = store.RecipientScope(*body.Scope)
		if !rule.Scope.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "scope must be partner1, partner2 or both"})
			return
		}
	}
	if body.Status != nil {
		rule.Status = store.RuleStatus(*body.Status)
		if rule.Status != store.StatusActive && rule.Status != store.StatusPaused {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status must be active or paused"})
			return
		}
	}

	updated, err := s.store.UpdateRule(c.Request.Context(), rule)
	if err != nil {
		s.fail(c, "update schedule", err)
		return
	}
	if !s.rebuildAfterMutation(c) {
		return
	}
	c.JSON(http.StatusOK, ruleJSON(updated))
}

func (s *Server) handleDeleteSchedule(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule id"})
		return
	}
	err = s.store.DeleteRule(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "schedule not found"})
		return
	}
	if err != nil {
		s.fail(c, "delete schedule", err)
		return
	}
	if !s.rebuildAfterMutation(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ---- preferences ----

type preferenceBody struct {
	RecipientID      int64  `json:"recipient_id"`
	DisplayName      string `json:"display_name"`
	GoodMorning      *bool  `json:"good_morning"`
	SpecialOccasions *bool  `json:"special_occasions"`
	Reminders        *bool  `json:"reminders"`
	MessageStyle     string `json:"message_style"`
}

func (s *Server) handleListPreferences(c *gin.Context) {
	prefs, err := s.store.ListPreferences(c.Request.Context())
	if err != nil {
		s.fail(c, "list preferences", err)
		return
	}
	out := make([]gin.H, 0, len(prefs))
	for _, p := range prefs {
		out = append(out, preferenceJSON(p))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handlePutPreference(c *gin.Context) {
	role := store.RecipientScope(c.Param("role"))
	if role != store.ScopePartnerOne && role != store.ScopePartnerTwo {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be partner1 or partner2"})
		return
	}
	var body preferenceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if body.RecipientID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recipient_id is required"})
		return
	}

	pref := store.Preference{
		RecipientID:      body.RecipientID,
		Role:             role,
		DisplayName:      strings.TrimSpace(body.DisplayName),
		GoodMorning:      true,
		SpecialOccasions: true,
		MessageStyle:     "romantic",
	}
	if body.GoodMorning != nil {
		pref.GoodMorning = *body.GoodMorning
	}
	if body.SpecialOccasions != nil {
		pref.SpecialOccasions = *body.SpecialOccasions
	}
	if body.Reminders != nil {
		pref.Reminders = *body.Reminders
	}
	if strings.TrimSpace(body.MessageStyle) != "" {
		pref.MessageStyle = strings.TrimSpace(body.MessageStyle)
	}

	saved, err := s.store.UpsertPreference(c.Request.Context(), pref)
	if err != nil {
		s.fail(c, "save preference", err)
		return
	}
	if !s.rebuildAfterMutation(c) {
		return
	}
	c.JSON(http.StatusOK, preferenceJSON(saved))
}

// ---- AI settings ----

type aiSettingsBody struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Style       string  `json:"style"`
}

func (s *Server) handleGetAISettings(c *gin.Context) {
	set, err := s.store.GetAISettings(c.Request.Context())
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "ai settings not configured"})
		return
	}
	if err != nil {
		s.fail(c, "get ai settings", err)
		return
	}
	c.JSON(http.StatusOK, aiSettingsBody{Model: set.Model, Temperature: set.Temperature, MaxTokens: set.MaxTokens, Style: set.Style})
}

func (s *Server) handlePutAISettings(c *gin.Context) {
	var body aiSettingsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(body.Model) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "model is required"})
		return
	}
	set := store.AISettings{Model: body.Model, Temperature: body.Temperature, MaxTokens: body.MaxTokens, Style: body.Style}
	if err := s.store.PutAISettings(c.Request.Context(), set); err != nil {
		s.fail(c, "save ai settings", err)
		return
	}
	if !s.rebuildAfterMutation(c) {
		return
	}
	c.JSON(http.StatusOK, body)
}

// ---- stats ----

func (s *Server) handleCommandStats(c *gin.Context) {
	now := time.Now().In(s.cfg.Timezone)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.cfg.Timezone)
	counts, err := s.store.DeliveryCountsSince(c.Request.Context(), midnight)
	if err != nil {
		s.fail(c, "command stats", err)
		return
	}
	out := make([]gin.H, 0, len(counts))
	for _, kc := range counts {
		out = append(out, gin.H{"command": kc.Kind, "count": kc.Count})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleDeliveries(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	recs, err := s.store.ListDeliveries(c.Request.Context(), limit)
	if err != nil {
		s.fail(c, "list deliveries", err)
		return
	}
	out := make([]gin.H, 0, len(recs))
	for _, d := range recs {
		out = append(out, gin.H{"id": d.ID, "kind": d.Kind, "recipient_id": d.RecipientID, "sent_at": d.SentAt})
	}
	c.JSON(http.StatusOK, out)
}

// ---- truth or dare ----

func (s *Server) handleRandomTruth(c *gin.Context) {
	t, err := s.store.RandomTruth(c.Request.Context(), spicyQuery(c))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no truth questions available"})
		return
	}
	if err != nil {
		s.fail(c, "random truth", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": t.ID, "question": t.Question, "spicy": t.Spicy})
}

func (s *Server) handleRandomDare(c *gin.Context) {
	d, err := s.store.RandomDare(c.Request.Context(), spicyQuery(c))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no dare challenges available"})
		return
	}
	if err != nil {
		s.fail(c, "random dare", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": d.ID, "challenge": d.Challenge, "spicy": d.Spicy})
}

type deckBody struct {
	Question  string `json:"question"`
	Challenge string `json:"challenge"`
	Spicy     bool   `json:"spicy"`
}

func (s *Server) handleAddTruth(c *gin.Context) {
	var body deckBody
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}
	t, err := s.store.AddTruth(c.Request.Context(), strings.TrimSpace(body.Question), body.Spicy)
	if err != nil {
		s.fail(c, "add truth", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": t.ID, "question": t.Question, "spicy": t.Spicy})
}

func (s *Server) handleAddDare(c *gin.Context) {
	var body deckBody
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Challenge) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "challenge is required"})
		return
	}
	d, err := s.store.AddDare(c.Request.Context(), strings.TrimSpace(body.Challenge), body.Spicy)
	if err != nil {
		s.fail(c, "add dare", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": d.ID, "challenge": d.Challenge, "spicy": d.Spicy})
}

// ---- scheduler ----

func (s *Server) handleSchedulerSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, s.sched.Snapshot(c.Request.Context()))
}

func (s *Server) handleRebuild(c *gin.Context) {
	if err := s.sched.Rebuild(c.Request.Context()); err != nil {
		s.fail(c, "rebuild", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rebuilt"})
}

// ---- helpers ----

// rebuildAfterMutation runs the synchronous rebuild every rule/preference
// mutation requires. The mutation is already persisted when this runs; a
// rebuild failure therefore surfaces as a 500 so the caller knows scheduling
// state may lag the stored state.
func (s *Server) rebuildAfterMutation(c *gin.Context) bool {
	if err := s.sched.Rebuild(c.Request.Context()); err != nil {
		s.log.Error("rebuild after mutation failed", logx.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "saved, but schedule rebuild failed"})
		return false
	}
	return true
}

func (s *Server) fail(c *gin.Context, op string, err error) {
	s.log.Error(op+" failed", logx.Err(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": op + " failed"})
}

func spicyQuery(c *gin.Context) bool {
	v := strings.ToLower(c.Query("spicy"))
	return v == "1" || v == "true" || v == "yes"
}

func ruleJSON(r store.ScheduleRule) gin.H {
	return gin.H{
		"id":          r.ID,
		"label":       r.Label,
		"category":    r.Kind.String(),
		"time_of_day": r.TimeOfDay,
		"scope":       r.Scope,
		"status":      r.Status,
		"created_at":  r.CreatedAt,
		"updated_at":  r.UpdatedAt,
	}
}

func rulesJSON(rules []store.ScheduleRule) []gin.H {
	out := make([]gin.H, 0, len(rules))
	for _, r := range rules {
		out = append(out, ruleJSON(r))
	}
	return out
}

func preferenceJSON(p store.Preference) gin.H {
	return gin.H{
		"recipient_id":      p.RecipientID,
		"role":              p.Role,
		"display_name":      p.DisplayName,
		"good_morning":      p.GoodMorning,
		"special_occasions": p.SpecialOccasions,
		"reminders":         p.Reminders,
		"message_style":     p.MessageStyle,
	}
}
