package server

import (
	"context"
	"net/http"
	"time"

	"github.com/billora/billora/internal/audit"
	auditdomain "github.com/billora/billora/internal/audit/domain"
	"github.com/billora/billora/internal/business"
	businessdomain "github.com/billora/billora/internal/business/domain"
	"github.com/billora/billora/internal/config"
	"github.com/billora/billora/internal/customer"
	customerdomain "github.com/billora/billora/internal/customer/domain"
	"github.com/billora/billora/internal/invoice"
	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	"github.com/billora/billora/internal/observability"
	obsmiddleware "github.com/billora/billora/internal/observability/logger"
	obsmetrics "github.com/billora/billora/internal/observability/metrics"
	"github.com/billora/billora/internal/payment"
	"github.com/billora/billora/internal/payment/checkout"
	paymentdomain "github.com/billora/billora/internal/payment/domain"
	"github.com/billora/billora/internal/product"
	productdomain "github.com/billora/billora/internal/product/domain"
	"github.com/billora/billora/internal/providers/email"
	"github.com/billora/billora/internal/receipt"
	receiptdomain "github.com/billora/billora/internal/receipt/domain"
	"github.com/billora/billora/internal/secrets"
	"github.com/billora/billora/internal/tax"
	taxdomain "github.com/billora/billora/internal/tax/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	secrets.Module,
	email.Module,
	audit.Module,
	business.Module,
	customer.Module,
	product.Module,
	tax.Module,
	receipt.Module,
	invoice.Module,
	payment.Module,
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, log, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node

	auditSvc    auditdomain.Service
	businessSvc businessdomain.Service
	customerSvc customerdomain.Service
	productSvc  productdomain.Service
	taxSvc      taxdomain.Service
	invoiceSvc  invoicedomain.Service
	receiptSvc  receiptdomain.Service
	checkoutSvc *checkout.Service
	paymentRepo paymentdomain.Repository
}

type ServerParams struct {
	fx.In

	Gin   *gin.Engine
	Cfg   config.Config
	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node

	AuditSvc    auditdomain.Service
	BusinessSvc businessdomain.Service
	CustomerSvc customerdomain.Service
	ProductSvc  productdomain.Service
	TaxSvc      taxdomain.Service
	InvoiceSvc  invoicedomain.Service
	ReceiptSvc  receiptdomain.Service
	CheckoutSvc *checkout.Service
	PaymentRepo paymentdomain.Repository
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine: p.Gin,
		cfg:    p.Cfg,
		db:     p.DB,
		log:    p.Log.Named("http.server"),
		genID:  p.GenID,

		auditSvc:    p.AuditSvc,
		businessSvc: p.BusinessSvc,
		customerSvc: p.CustomerSvc,
		productSvc:  p.ProductSvc,
		taxSvc:      p.TaxSvc,
		invoiceSvc:  p.InvoiceSvc,
		receiptSvc:  p.ReceiptSvc,
		checkoutSvc: p.CheckoutSvc,
		paymentRepo: p.PaymentRepo,
	}
}

func registerRoutes(s *Server) {
	s.registerAPIRoutes()
	s.registerPublicRoutes()
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	// -------- Businesses --------
	api.POST("/businesses", s.CreateBusiness)
	api.GET("/businesses", s.ListBusinesses)
	api.GET("/businesses/:id", s.GetBusinessByID)
	api.PATCH("/businesses/:id", s.UpdateBusiness)
	api.POST("/businesses/:id/paystack/connect", s.ConnectPaystack)
	api.POST("/businesses/:id/paystack/disconnect", s.DisconnectPaystack)
	api.GET("/businesses/:id/paystack", s.GetPaystackStatus)

	// Tenant-scoped routes carry the business in the X-Business-ID
	// header.
	scoped := api.Group("", s.BusinessContext())

	// -------- Customers --------
	scoped.GET("/customers", s.ListCustomers)
	scoped.POST("/customers", s.CreateCustomer)
	scoped.GET("/customers/:id", s.GetCustomerByID)
	scoped.PATCH("/customers/:id", s.UpdateCustomer)

	// -------- Products --------
	scoped.GET("/products", s.ListProducts)
	scoped.POST("/products", s.CreateProduct)
	scoped.GET("/products/:id", s.GetProductByID)
	scoped.PATCH("/products/:id", s.UpdateProduct)
	scoped.POST("/products/:id/stock/adjust", s.AdjustProductStock)
	scoped.GET("/products/:id/stock/movements", s.ListProductStockMovements)

	// -------- Tax settings --------
	scoped.GET("/tax-settings", s.GetTaxSettings)
	scoped.PUT("/tax-settings", s.UpdateTaxSettings)

	// -------- Invoices --------
	scoped.GET("/invoices", s.ListInvoices)
	scoped.POST("/invoices", s.CreateInvoice)
	scoped.GET("/invoices/:id", s.GetInvoiceByID)
	scoped.PATCH("/invoices/:id", s.UpdateInvoice)
	scoped.POST("/invoices/:id/send", s.SendInvoice)
	scoped.POST("/invoices/:id/cancel", s.CancelInvoice)
	scoped.POST("/invoices/:id/payments", s.RecordInvoicePayment)
	scoped.GET("/invoices/:id/payments", s.ListInvoicePayments)
	scoped.POST("/invoices/:id/payments/verify", s.VerifyInvoicePayment)

	// -------- Receipts --------
	scoped.GET("/receipts", s.ListReceipts)
	scoped.GET("/receipts/:id", s.GetReceiptByID)
	scoped.GET("/invoices/:id/receipt", s.GetReceiptByInvoice)

	// -------- Audit logs --------
	scoped.GET("/audit-logs", s.ListAuditLogs)
}

func (s *Server) registerPublicRoutes() {
	api := s.engine.Group("/api/v1")

	// Public payment surface; slug access only, no tenant header.
	api.GET("/invoices/public/:slug", s.GetPublicInvoice)
	api.POST("/invoices/public/:slug/paystack/initialize", s.InitializePublicPayment)
	api.GET("/invoices/public/:slug/pay", s.RedirectToCheckout)
	api.GET("/payments/verify", s.VerifyPublicPayment)
	api.POST("/webhooks/paystack", s.HandlePaystackWebhook)
}
