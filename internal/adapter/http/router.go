package http

import (
	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Health *Handler
	Loans  *LoanHandler
	Admin  *AdminHandler
	Funds  *FundsHandler
}

// Register installs the validator and every ledger route on e.
func Register(e *echo.Echo, h Handlers) {
	e.Validator = NewValidator()

	e.GET("/health", h.Health.Health)

	loans := e.Group("/loans")
	loans.POST("", h.Loans.CreateLoan)
	loans.GET("/:id", h.Loans.GetLoan)
	loans.POST("/:id/investments", h.Loans.Invest)
	loans.POST("/:id/recipient", h.Loans.AuthorizeRecipient)
	loans.POST("/:id/withdraw", h.Loans.Withdraw)
	loans.POST("/:id/repay", h.Loans.Repay)
	loans.POST("/:id/default", h.Loans.MarkDefaulted)
	loans.POST("/:id/cancel", h.Loans.Cancel)
	loans.GET("/:id/funding", h.Loans.FundingStatus)
	loans.GET("/:id/settlement", h.Loans.SettlementStatus)
	loans.GET("/:id/positions", h.Loans.FundingHistory)
	loans.GET("/:id/withdrawal", h.Loans.WithdrawalInfo)

	e.GET("/positions/:id", h.Loans.GetPosition)

	admin := e.Group("/admin")
	admin.GET("/assets", h.Admin.ListAssets)
	admin.POST("/assets", h.Admin.AllowAsset)
	admin.DELETE("/assets/:asset", h.Admin.DisallowAsset)
	admin.GET("/threshold", h.Admin.GetThreshold)
	admin.PUT("/threshold", h.Admin.SetThreshold)
	admin.POST("/deposits", h.Funds.Deposit)

	e.POST("/allowances", h.Funds.Approve)
	e.GET("/allowances/:asset/:owner/:spender", h.Funds.Allowance)
	e.GET("/balances/:asset/:account", h.Funds.Balance)
}
