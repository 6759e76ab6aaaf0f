package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/0xcafe-io/iz"
	"github.com/google/uuid"
	"github.com/otieno-dev/chama_tracker/api"
	"github.com/otieno-dev/chama_tracker/internal/auth"
	"github.com/otieno-dev/chama_tracker/internal/chama"
	"github.com/otieno-dev/chama_tracker/internal/contextutil"
	"github.com/otieno-dev/chama_tracker/internal/notify"
	"github.com/otieno-dev/chama_tracker/internal/storage"
	"github.com/otieno-dev/chama_tracker/logging"
	"github.com/rs/cors"
)

var ct chama.ChamaTracker // Global

var corsConf = cors.New(cors.Options{
	AllowedOrigins:   []string{"*"},
	AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	AllowedHeaders:   []string{"Authorization", "Content-Type"},
	AllowCredentials: true,
})

const (
	defaultIdleLimit     = 15 * time.Minute
	defaultWarningWindow = 1 * time.Minute
)

func idleDurations() (time.Duration, time.Duration) {
	idleLimit := defaultIdleLimit
	warningWindow := defaultWarningWindow

	if limitStr := os.Getenv("IDLE_LIMIT"); limitStr != "" {
		if parsed, err := time.ParseDuration(limitStr); err == nil {
			idleLimit = parsed
		} else {
			logging.Logger.Warnf("invalid IDLE_LIMIT %q, using default", limitStr)
		}
	}
	if windowStr := os.Getenv("IDLE_WARNING_WINDOW"); windowStr != "" {
		if parsed, err := time.ParseDuration(windowStr); err == nil {
			warningWindow = parsed
		} else {
			logging.Logger.Warnf("invalid IDLE_WARNING_WINDOW %q, using default", windowStr)
		}
	}
	return idleLimit, warningWindow
}

// withTraceID tags every request context with a trace id for log correlation.
func withTraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := contextutil.WithTraceID(r.Context(), uuid.NewString())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func main() {
	if err := logging.Init("debug"); err != nil {
		fmt.Println("failed to initialize logger: %w", err)
		return
	}

	logging.Logger.Info("application starting...")

	db, err := storage.Init()
	if err != nil {
		logging.Logger.Errorf("failed to initialize database: %v", err)
		return
	}

	storageInstance := storage.NewMySQLStorage(db)
	if storageInstance == nil {
		logging.Logger.Errorf("failed to create instance of database: %v", err)
		return
	}

	hub := notify.NewHub()
	ct = chama.NewChamaTracker(storageInstance, hub)

	idleLimit, warningWindow := idleDurations()
	guard := auth.NewSessionGuard(idleLimit, warningWindow, func(token string) {
		ctx := contextutil.WithTraceID(context.Background(), uuid.NewString())
		if err := ct.LogoutUser(ctx, token); err != nil {
			logging.Logger.Warnf("failed to revoke idle session: %v", err)
		}
	})

	server := http.NewServeMux()
	api := api.NewApi(&ct, guard)

	// USER ENDPOINTS.
	server.HandleFunc("POST /api/register", iz.Bind(api.SaveUserHandler))           // Create User
	server.HandleFunc("POST /api/login", iz.Bind(api.LoginUserHandler))             // Login User
	server.HandleFunc("GET /api/logout", iz.Bind(api.LogoutUserHandler))            // Logout User
	server.HandleFunc("POST /api/reset-password", iz.Bind(api.ResetPasswordHandler)) // Reset Password
	server.HandleFunc("GET /api/check-token", iz.Bind(api.CheckToken))              // Check User Token + idle state
	server.HandleFunc("GET /api/account", iz.Bind(api.GetAccountInfo))              // Account Info
	server.HandleFunc("PUT /api/account", iz.Bind(api.UpdateProfileHandler))        // Update Profile

	// MEMBER ENDPOINTS.
	server.HandleFunc("GET /api/member", iz.Bind(api.ListMembersHandler))                     // Get Members
	server.HandleFunc("POST /api/member", iz.Bind(api.AddMemberHandler))                      // Create Member (admin)
	server.HandleFunc("GET /api/member/{id}/statement", iz.Bind(api.GetMemberStatementHandler)) // Member Statement

	// CONTRIBUTION ENDPOINTS.
	server.HandleFunc("POST /api/contribution", iz.Bind(api.AddContributionRangeHandler))      // Create Contributions for month range
	server.HandleFunc("GET /api/contribution", iz.Bind(api.GetFilteredContributionsHandler))   // Get Contributions with filters
	server.HandleFunc("POST /api/contribution/import", api.ImportContributions)                // Import Contributions from CSV (admin)

	// EXPENSE ENDPOINTS.
	server.HandleFunc("POST /api/expense", iz.Bind(api.SaveExpenseHandler))              // Create Expense
	server.HandleFunc("GET /api/expense", iz.Bind(api.GetFilteredExpensesHandler))       // Get Expenses with filters
	server.HandleFunc("POST /api/expense/{id}/approve", iz.Bind(api.ApproveExpenseHandler)) // Approve Expense (admin)
	server.HandleFunc("POST /api/expense/{id}/reject", iz.Bind(api.RejectExpenseHandler))   // Reject Expense (admin)

	// CSR PROJECT ENDPOINTS.
	server.HandleFunc("POST /api/project", iz.Bind(api.SaveProjectHandler))                        // Create Project (admin)
	server.HandleFunc("GET /api/project", iz.Bind(api.ListProjectsHandler))                        // Get Projects
	server.HandleFunc("GET /api/project/{id}", iz.Bind(api.GetProjectDetailHandler))               // Get Project with progress
	server.HandleFunc("POST /api/project/{id}/contribution", iz.Bind(api.SaveProjectContributionHandler)) // Record Project Contribution

	// REPORT ENDPOINTS.
	server.HandleFunc("GET /api/statistics/monthly", iz.Bind(api.GetMonthlySummaryHandler)) // Get Monthly Summary
	server.HandleFunc("GET /api/report/contributions", api.DownloadContributionsReport)     // Download Contributions (csv/pdf/xlsx)
	server.HandleFunc("GET /api/report/summary", api.DownloadSummaryReport)                 // Download Summary (csv/pdf/xlsx)

	// CHANGE NOTIFICATIONS.
	server.HandleFunc("GET /api/events", api.StreamEvents(hub)) // Server-sent table change events

	// ADMIN ENDPOINTS.
	server.HandleFunc("POST /api/admin/deduplicate-members", iz.Bind(api.DeduplicateMembersHandler))   // Merge duplicate members (admin)
	server.HandleFunc("POST /api/admin/cleanup-contributions", iz.Bind(api.CleanupContributionsHandler)) // Remove duplicate contributions (admin)
	server.HandleFunc("POST /api/admin/seed", iz.Bind(api.SeedDemoDataHandler))                        // Seed demo data (admin)

	port := os.Getenv("APP_PORT")
	if port == "" {
		logging.Logger.Info("APP_PORT environment variable not set, using default port 8080")
		port = "8080"
	}
	fmt.Println("Starting server on port: ", port)
	handlerwithCors := corsConf.Handler(withTraceID(server))
	err = http.ListenAndServe(":"+port, handlerwithCors) // Start the server
	if err != nil {
		logging.Logger.Errorf("failed to start server: %v", err)
		return
	}
}
