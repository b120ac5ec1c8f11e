package api

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/holiman/uint256"

	"github.com/orbitalfi/intents-core/internal/auction"
	"github.com/orbitalfi/intents-core/internal/executor"
	"github.com/orbitalfi/intents-core/internal/intent"
	"github.com/orbitalfi/intents-core/internal/kinds"
	"github.com/orbitalfi/intents-core/internal/mathkernel"
	"github.com/orbitalfi/intents-core/internal/tickengine"
	"github.com/orbitalfi/intents-core/orbital"
)

// APIHandler exposes the engine's operation set over HTTP and broadcasts
// execution lifecycle events over a websocket hub.
type APIHandler struct {
	engine *orbital.Engine
	wsHub  *Hub
}

// SetupRouter builds the gin engine wiring every route to the orbital
// engine's operation set.
func SetupRouter(engine *orbital.Engine, wsHub *Hub) *gin.Engine {
	r := gin.Default()

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := &APIHandler{engine: engine, wsHub: wsHub}

	pub := r.Group("/api/v1")
	{
		pub.GET("/health", handler.handleHealth)
		pub.GET("/stream", wsHub.Subscribe)
		pub.GET("/metrics", handler.handleMetrics)
	}

	auth := r.Group("/api/v1")
	auth.Use(AuthMiddleware())
	auth.Use(NewRateLimiter(120, 20).Middleware())
	{
		auth.POST("/pools", handler.handleCreatePool)
		auth.GET("/pools/:poolId/quote", handler.handleQuoteSwap)
		auth.POST("/pools/:poolId/swap", handler.handleExecuteSwap)
		auth.GET("/pools/:poolId/quote-path", handler.handleQuoteMultiHop)
		auth.POST("/pools/:poolId/ticks", handler.handleAddTick)
		auth.DELETE("/pools/:poolId/ticks/:tickId", handler.handleRemoveTick)
		auth.GET("/ticks/recommend", handler.handleRecommendTick)
		auth.GET("/route", handler.handleFindRoute)

		auth.POST("/intents", handler.handleSubmitIntent)
		auth.DELETE("/intents/:id", handler.handleCancelIntent)
		auth.GET("/intents/:id", handler.handleIntentStatus)

		auth.POST("/solvers", handler.handleRegisterSolver)
		auth.POST("/solvers/:addr/bond", handler.handleAddBond)
		auth.GET("/solvers/top", handler.handleTopSolvers)
		auth.GET("/solvers/:addr", handler.handleSolverInfo)

		auth.POST("/auctions", handler.handleOpenAuction)
		auth.POST("/auctions/:id/quotes", handler.handleSubmitQuote)
		auth.POST("/auctions/:id/settle", handler.handleSettleAuction)

		auth.GET("/contexts", handler.handleActiveContexts)
	}

	return r
}

// errStatus maps a tagged kinds.Error to an HTTP status code; anything
// unrecognized (or not a kinds.Error at all) falls back to 500.
func errStatus(err error) int {
	var e *kinds.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case kinds.InvalidTokenCount, kinds.IndexOutOfBounds, kinds.InvalidAmount,
		kinds.ExpiredDeadline, kinds.SameChainSameToken, kinds.InvalidSignature,
		kinds.InvalidSlippage, kinds.InsufficientOutput, kinds.InvalidIntent:
		return http.StatusBadRequest
	case kinds.NotFound, kinds.RouteNotFound, kinds.NotRegistered:
		return http.StatusNotFound
	case kinds.AlreadyOpen:
		return http.StatusConflict
	case kinds.InsufficientLiquidity, kinds.InsufficientBond, kinds.Slashed,
		kinds.NoEligibleSolver, kinds.UnsupportedChain, kinds.QuoteRejected:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondErr(c *gin.Context, err error) {
	c.JSON(errStatus(err), gin.H{"error": err.Error()})
}

func parseU256(s string) (*uint256.Int, error) {
	return uint256.FromDecimal(s)
}

func parseHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}

func hexID(id [32]byte) string {
	return "0x" + hex.EncodeToString(id[:])
}

func parseIDParam(c *gin.Context, name string) ([32]byte, error) {
	raw, err := parseHex(c.Param(name))
	if err != nil || len(raw) != 32 {
		return [32]byte{}, errors.New("id must be a 32-byte hex string")
	}
	var id [32]byte
	copy(id[:], raw)
	return id, nil
}

func (h *APIHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "operational",
		"engine": "orbital intents core",
	})
}

func (h *APIHandler) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.MetricsSnapshot())
}

// ── Pools ──────────────────────────────────────────────────────────

type createPoolRequest struct {
	ID        uint64   `json:"id" binding:"required"`
	TokenIDs  []uint64 `json:"tokenIds" binding:"required"`
	Reserves  []string `json:"reserves" binding:"required"`
	Curve     string   `json:"curve"` // "sphere" or "superellipse"
	UBp       uint32   `json:"uBp"`
	Invariant string   `json:"invariant" binding:"required"`
	FeeBp     uint64   `json:"feeBp"`
}

func (h *APIHandler) handleCreatePool(c *gin.Context) {
	var req createPoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reserves := make([]*uint256.Int, len(req.Reserves))
	for i, r := range req.Reserves {
		v, err := parseU256(r)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reserve at index " + strconv.Itoa(i)})
			return
		}
		reserves[i] = v
	}
	invariant, err := parseU256(req.Invariant)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invariant"})
		return
	}

	curve := mathkernel.Curve{Kind: mathkernel.CurveSphere, UBp: mathkernel.SphereUBp}
	if req.Curve == "superellipse" {
		curve = mathkernel.Curve{Kind: mathkernel.CurveSuperellipse, UBp: req.UBp}
	}

	p, err := h.engine.CreatePool(req.ID, req.TokenIDs, reserves, curve, invariant, req.FeeBp)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"poolId": p.ID})
}

func (h *APIHandler) poolFromParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("poolId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid poolId"})
		return 0, false
	}
	if _, ok := h.engine.Pool(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "pool not found"})
		return 0, false
	}
	return id, true
}

func (h *APIHandler) handleQuoteSwap(c *gin.Context) {
	poolID, ok := h.poolFromParam(c)
	if !ok {
		return
	}
	p, _ := h.engine.Pool(poolID)

	tokenIn, err1 := strconv.ParseUint(c.Query("tokenIn"), 10, 64)
	tokenOut, err2 := strconv.ParseUint(c.Query("tokenOut"), 10, 64)
	amountIn, err3 := parseU256(c.Query("amountIn"))
	if err1 != nil || err2 != nil || err3 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tokenIn, tokenOut, amountIn are required"})
		return
	}

	result, err := h.engine.QuoteSwap(p, tokenIn, tokenOut, amountIn)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type executeSwapRequest struct {
	TokenIn      uint64 `json:"tokenIn" binding:"required"`
	TokenOut     uint64 `json:"tokenOut" binding:"required"`
	AmountIn     string `json:"amountIn" binding:"required"`
	MinAmountOut string `json:"minAmountOut" binding:"required"`
}

func (h *APIHandler) handleExecuteSwap(c *gin.Context) {
	poolID, ok := h.poolFromParam(c)
	if !ok {
		return
	}
	p, _ := h.engine.Pool(poolID)

	var req executeSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amountIn, err1 := parseU256(req.AmountIn)
	minOut, err2 := parseU256(req.MinAmountOut)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	result, err := h.engine.ExecuteSwap(p, req.TokenIn, req.TokenOut, amountIn, minOut)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *APIHandler) handleQuoteMultiHop(c *gin.Context) {
	poolID, ok := h.poolFromParam(c)
	if !ok {
		return
	}
	p, _ := h.engine.Pool(poolID)

	pathStr := c.Query("path")
	amountIn, err := parseU256(c.Query("amountIn"))
	if pathStr == "" || err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path and amountIn are required"})
		return
	}
	parts := strings.Split(pathStr, ",")
	path := make([]uint64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid path token at index " + strconv.Itoa(i)})
			return
		}
		path[i] = v
	}

	result, err := h.engine.QuoteMultiHop(p, path, amountIn)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *APIHandler) handleFindRoute(c *gin.Context) {
	tokenIn, err1 := strconv.ParseUint(c.Query("tokenIn"), 10, 64)
	tokenOut, err2 := strconv.ParseUint(c.Query("tokenOut"), 10, 64)
	amountIn, err3 := parseU256(c.Query("amountIn"))
	if err1 != nil || err2 != nil || err3 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tokenIn, tokenOut, amountIn are required"})
		return
	}

	route, err := h.engine.FindRoute(tokenIn, tokenOut, amountIn)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

type addTickRequest struct {
	ID            uint64 `json:"id" binding:"required"`
	PlaneConstant string `json:"planeConstant" binding:"required"`
	Liquidity     string `json:"liquidity" binding:"required"`
	FeeGrowth     string `json:"feeGrowth"`
	DepegLimitBp  uint32 `json:"depegLimitBp"`
}

func (h *APIHandler) handleAddTick(c *gin.Context) {
	poolID, ok := h.poolFromParam(c)
	if !ok {
		return
	}
	p, _ := h.engine.Pool(poolID)

	var req addTickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	planeConstant, err := parseU256(req.PlaneConstant)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid planeConstant"})
		return
	}
	liquidity, err := parseU256(req.Liquidity)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid liquidity"})
		return
	}
	feeGrowth := uint256.NewInt(0)
	if req.FeeGrowth != "" {
		feeGrowth, err = parseU256(req.FeeGrowth)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid feeGrowth"})
			return
		}
	}

	h.engine.AddTick(p, &tickengine.Tick{
		ID:            req.ID,
		PlaneConstant: planeConstant,
		Liquidity:     liquidity,
		FeeGrowth:     feeGrowth,
		DepegLimitBp:  req.DepegLimitBp,
	})
	c.JSON(http.StatusCreated, gin.H{"status": "added"})
}

func (h *APIHandler) handleRemoveTick(c *gin.Context) {
	poolID, ok := h.poolFromParam(c)
	if !ok {
		return
	}
	p, _ := h.engine.Pool(poolID)

	tickID, err := strconv.ParseUint(c.Param("tickId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tickId"})
		return
	}
	if err := h.engine.RemoveTick(p, tickID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

func (h *APIHandler) handleRecommendTick(c *gin.Context) {
	totalLiquidity, err1 := parseU256(c.Query("totalLiquidity"))
	toleranceBp, err2 := strconv.ParseUint(c.Query("toleranceBp"), 10, 32)
	tokenCount, err3 := strconv.Atoi(c.Query("tokenCount"))
	if err1 != nil || err2 != nil || err3 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "totalLiquidity, toleranceBp, tokenCount are required"})
		return
	}

	rec, err := h.engine.RecommendTick(totalLiquidity, uint32(toleranceBp), tokenCount)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// ── Intents ────────────────────────────────────────────────────────

type submitIntentRequest struct {
	User          string `json:"user" binding:"required"`
	SourceChainID uint64 `json:"sourceChainId" binding:"required"`
	DestChainID   uint64 `json:"destChainId" binding:"required"`
	SourceToken   string `json:"sourceToken" binding:"required"`
	DestToken     string `json:"destToken" binding:"required"`
	SourceAmount  string `json:"sourceAmount" binding:"required"`
	MinDestAmount string `json:"minDestAmount" binding:"required"`
	Deadline      uint64 `json:"deadline" binding:"required"`
	Nonce         uint64 `json:"nonce"`
	Data          string `json:"data"`
	Signature     string `json:"signature" binding:"required"`
	Now           uint64 `json:"now" binding:"required"`
}

func (h *APIHandler) handleSubmitIntent(c *gin.Context) {
	var req submitIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err1 := parseHex(req.User)
	sourceToken, err2 := parseHex(req.SourceToken)
	destToken, err3 := parseHex(req.DestToken)
	sig, err4 := parseHex(req.Signature)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user, sourceToken, destToken, signature must be hex"})
		return
	}
	var data []byte
	if req.Data != "" {
		data, err1 = parseHex(req.Data)
		if err1 != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "data must be hex"})
			return
		}
	}
	sourceAmount, err5 := parseU256(req.SourceAmount)
	minDestAmount, err6 := parseU256(req.MinDestAmount)
	if err5 != nil || err6 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	in := &intent.Intent{
		User:          user,
		SourceChainID: req.SourceChainID,
		DestChainID:   req.DestChainID,
		SourceToken:   sourceToken,
		DestToken:     destToken,
		SourceAmount:  sourceAmount,
		MinDestAmount: minDestAmount,
		Deadline:      req.Deadline,
		Nonce:         req.Nonce,
		Data:          data,
		Signature:     sig,
	}

	id, err := h.engine.SubmitIntent(in, req.Now)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"intentId": hexID(id)})
}

func (h *APIHandler) handleCancelIntent(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.CancelIntent(id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (h *APIHandler) handleIntentStatus(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, err := h.engine.IntentStatus(id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"intentId": hexID(id), "status": status.String()})
}

// ── Solvers ────────────────────────────────────────────────────────

type registerSolverRequest struct {
	Solver string   `json:"solver" binding:"required"`
	Bond   string   `json:"bond" binding:"required"`
	Chains []uint64 `json:"chains" binding:"required"`
	Now    uint64   `json:"now" binding:"required"`
}

func (h *APIHandler) handleRegisterSolver(c *gin.Context) {
	var req registerSolverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	solver, err := parseHex(req.Solver)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "solver must be hex"})
		return
	}
	bond, err := parseU256(req.Bond)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bond"})
		return
	}

	if err := h.engine.RegisterSolver(solver, bond, req.Chains, req.Now); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "registered"})
}

func (h *APIHandler) handleAddBond(c *gin.Context) {
	solver, err := parseHex(c.Param("addr"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "addr must be hex"})
		return
	}
	var req struct {
		Amount string `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := parseU256(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}
	if err := h.engine.AddBond(solver, amount); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "bonded"})
}

func (h *APIHandler) handleSolverInfo(c *gin.Context) {
	solver, err := parseHex(c.Param("addr"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "addr must be hex"})
		return
	}
	info, err := h.engine.SolverInfo(solver)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *APIHandler) handleTopSolvers(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		limit = 10
	}
	c.JSON(http.StatusOK, h.engine.TopSolvers(c.Request.Context(), limit))
}

// ── Auctions ───────────────────────────────────────────────────────

type openAuctionRequest struct {
	IntentID   string `json:"intentId" binding:"required"`
	TTLSeconds uint64 `json:"ttlSeconds" binding:"required"`
	Now        uint64 `json:"now" binding:"required"`
}

func (h *APIHandler) handleOpenAuction(c *gin.Context) {
	var req openAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	raw, err := parseHex(req.IntentID)
	if err != nil || len(raw) != 32 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "intentId must be a 32-byte hex string"})
		return
	}
	var id [32]byte
	copy(id[:], raw)

	rec, err := h.engine.OpenAuction(id, req.TTLSeconds, req.Now)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

type submitQuoteRequest struct {
	MinDestAmount string `json:"minDestAmount" binding:"required"`
	Solver        string `json:"solver" binding:"required"`
	DestAmount    string `json:"destAmount" binding:"required"`
	ExecSeconds   uint64 `json:"execSeconds"`
	SourceChainID uint64 `json:"sourceChainId" binding:"required"`
	DestChainID   uint64 `json:"destChainId" binding:"required"`
	Now           uint64 `json:"now" binding:"required"`
}

func (h *APIHandler) handleSubmitQuote(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req submitQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	minDestAmount, err1 := parseU256(req.MinDestAmount)
	destAmount, err2 := parseU256(req.DestAmount)
	solver, err3 := parseHex(req.Solver)
	if err1 != nil || err2 != nil || err3 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid solver or amount"})
		return
	}

	quote := auction.Quote{
		Solver:      solver,
		DestAmount:  destAmount,
		ExecSeconds: req.ExecSeconds,
		SubmittedAt: req.Now,
	}
	if err := h.engine.SubmitQuote(id, minDestAmount, quote, req.SourceChainID, req.DestChainID, req.Now); err != nil {
		respondErr(c, err)
		return
	}

	payload, _ := json.Marshal(gin.H{"type": "quote_submitted", "intentId": hexID(id), "solver": req.Solver})
	h.wsHub.Broadcast(payload)

	c.JSON(http.StatusCreated, gin.H{"status": "quoted"})
}

type settleAuctionRequest struct {
	User          string `json:"user" binding:"required"`
	DestToken     string `json:"destToken" binding:"required"`
	MinDestAmount string `json:"minDestAmount" binding:"required"`
	Route         struct {
		SourcePoolID   uint64 `json:"sourcePoolId"`
		SourceTokenIn  int    `json:"sourceTokenIn"`
		SourceTokenOut int    `json:"sourceTokenOut"`
		DestPoolID     uint64 `json:"destPoolId"`
		DestTokenIn    int    `json:"destTokenIn"`
		DestTokenOut   int    `json:"destTokenOut"`
	} `json:"route"`
}

func (h *APIHandler) handleSettleAuction(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req settleAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err1 := parseHex(req.User)
	destToken, err2 := parseHex(req.DestToken)
	minDestAmount, err3 := parseU256(req.MinDestAmount)
	if err1 != nil || err2 != nil || err3 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user, destToken, or minDestAmount"})
		return
	}

	var route executor.Route
	if req.Route.SourcePoolID != 0 {
		if p, ok := h.engine.Pool(req.Route.SourcePoolID); ok {
			route.SourcePool = p
			route.SourceTokenIn = req.Route.SourceTokenIn
			route.SourceTokenOut = req.Route.SourceTokenOut
		}
	}
	if req.Route.DestPoolID != 0 {
		if p, ok := h.engine.Pool(req.Route.DestPoolID); ok {
			route.DestPool = p
			route.DestTokenIn = req.Route.DestTokenIn
			route.DestTokenOut = req.Route.DestTokenOut
		}
	}

	winner, err := h.engine.SettleAuction(c.Request.Context(), id, route, user, destToken, minDestAmount)
	if err != nil {
		respondErr(c, err)
		return
	}

	payload, _ := json.Marshal(gin.H{"type": "auction_settled", "intentId": hexID(id), "winner": hex.EncodeToString(winner.Solver)})
	h.wsHub.Broadcast(payload)

	c.JSON(http.StatusOK, winner)
}

func (h *APIHandler) handleActiveContexts(c *gin.Context) {
	contexts := h.engine.ActiveContexts()
	out := make(map[string]*executor.Context, len(contexts))
	for id, ctx := range contexts {
		out[hexID(id)] = ctx
	}
	c.JSON(http.StatusOK, out)
}
