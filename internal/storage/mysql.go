package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	appErrors "github.com/otieno-dev/chama_tracker/errors"
	"github.com/otieno-dev/chama_tracker/internal/auth"
	"github.com/otieno-dev/chama_tracker/internal/chama"
	"github.com/otieno-dev/chama_tracker/internal/contextutil"
	"github.com/otieno-dev/chama_tracker/logging"
	"github.com/go-sql-driver/mysql"
)

// --- INIT START --- //

func Init() (*sql.DB, error) {
	var db *sql.DB
	var err error
	var dbname string

	username := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASS")
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	dbname = os.Getenv("DB_NAME")
	fullDsn := os.Getenv("FULL_DSN")

	if dbname == "" {
		dbname = "chama_tracker"
	}

	var adminDsn string
	if fullDsn != "" {
		parts := strings.Split(fullDsn, "/")
		adminDsn = strings.Join(parts[:len(parts)-1], "/") + "/"
	} else {
		if username == "" || password == "" || host == "" || port == "" {
			return nil, fmt.Errorf("missing required DB environment variables")
		}
		adminDsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/?parseTime=true", username, password, host, port)
	}

	logging.Logger.Info("Connecting to MySQL server for initialization...")
	adminDb, err := sql.Open("mysql", adminDsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open admin mysql handle: %v", err)
	}
	connected := false
	for i := 0; i < 15; i++ {
		if err := adminDb.Ping(); err == nil {
			connected = true
			break
		}
		logging.Logger.Warnf("Database not ready, retrying... (%d/15)", i+1)
		time.Sleep(3 * time.Second)
	}
	if !connected {
		return nil, fmt.Errorf("database unreachable after multiple attempts")
	}

	var dbnameExistence string
	checkDbnameExistQuery := "SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?"
	err = adminDb.QueryRow(checkDbnameExistQuery, dbname).Scan(&dbnameExistence)

	if err == sql.ErrNoRows {
		logging.Logger.Infof("Database '%s' does not exist, creating...", dbname)
		createDbSql := fmt.Sprintf("CREATE DATABASE `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_general_ci;", dbname)
		if _, err := adminDb.Exec(createDbSql); err != nil {
			adminDb.Close()
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	} else if err != nil {
		adminDb.Close()
		return nil, fmt.Errorf("failed to check database existence: %v", err)
	}

	adminDb.Close()

	var finalDsn string
	if fullDsn != "" {
		finalDsn = fullDsn
	} else {
		finalDsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", username, password, host, port, dbname)
	}

	logging.Logger.Info("Connecting to database...")
	db, err = sql.Open("mysql", finalDsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database handle: %v", err)
	}

	if _, err := db.Exec("SET time_zone = '+00:00'"); err != nil {
		logging.Logger.Warn("failed to set database timezone(UTC+0)")
	}

	logging.Logger.Info("Connected to database successfully")
	logging.Logger.Info("Running migrations...")

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	return db, nil
}

func runMigrations(db *sql.DB) error {
	migrationFiles, err := getMigrationFiles("db/migrations")
	if err != nil {
		return fmt.Errorf("failed to get migration files: %v", err)
	}

	lastAppliedMigration, err := getLastAppliedMigration(db)
	if err != nil {
		return fmt.Errorf("failed to get last applied migration name: %v", err)
	}

	newMigrations := filterNewMigrations(migrationFiles, lastAppliedMigration)

	if len(newMigrations) == 0 {
		logging.Logger.Info("no new migration")
		return nil
	}

	for _, migrationFile := range newMigrations {
		logging.Logger.Info("applying migration: ", migrationFile)
		migrationContent, err := os.ReadFile(filepath.Join("db/migrations/", migrationFile))
		if err != nil {
			return fmt.Errorf("failed to read this '%s' migration file, error: %v", migrationFile, err)
		}

		err = applyMigration(db, migrationFile, string(migrationContent))
		if err != nil {
			return fmt.Errorf("failed to apply this '%s' migration file, error: %v", migrationFile, err)
		}

	}

	logging.Logger.Info("all migrations applied successfully")
	return nil
}

func getMigrationFiles(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var migrationFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".sql") {
			migrationFiles = append(migrationFiles, file.Name())
		}
	}

	sort.Strings(migrationFiles)
	return migrationFiles, nil
}

func getLastAppliedMigration(db *sql.DB) (string, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS migration (
        id INT AUTO_INCREMENT PRIMARY KEY,
        migration_name VARCHAR(255) NOT NULL UNIQUE,
        applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );`)

	if err != nil {
		return "", err
	}

	var lastMigration string
	err = db.QueryRow("SELECT migration_name FROM migration ORDER BY migration_name DESC LIMIT 1").Scan(&lastMigration)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return lastMigration, err
}

func filterNewMigrations(all []string, lastApplied string) []string {
	if lastApplied == "" {
		return all
	}

	var result []string
	for _, migration := range all {
		if migration > lastApplied {
			result = append(result, migration)
		}
	}
	return result
}

func applyMigration(db *sql.DB, name, sqlContent string) error {
	txn, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	statements := strings.Split(sqlContent, ";")

	for _, statement := range statements {
		trimmedStmt := strings.TrimSpace(statement)
		if trimmedStmt == "" {
			continue
		}

		if _, err := txn.Exec(trimmedStmt); err != nil {
			txn.Rollback()
			return fmt.Errorf("migration statement failed: %w\nStatement: %s", err, trimmedStmt)
		}
	}

	if _, err := txn.Exec("INSERT INTO migration (migration_name) VALUES (?)", name); err != nil {
		txn.Rollback()
		return fmt.Errorf("failed to record migration name: %w", err)
	}

	return txn.Commit()
}

// --- INIT END --- //

type MySQLStorage struct {
	db *sql.DB
}

func NewMySQLStorage(db *sql.DB) *MySQLStorage {
	return &MySQLStorage{db: db}
}

func (mySql *MySQLStorage) GetStorageType() string {
	return "mysql"
}

func isDuplicateKey(err error) bool {
	if mysqlErr, ok := err.(*mysql.MySQLError); ok {
		return mysqlErr.Number == 1062
	}
	return false
}

// SaveUser writes the login row and the member profile row in one
// transaction.
func (mySql *MySQLStorage) SaveUser(ctx context.Context, user auth.User, member chama.Member) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	txn, err := mySql.db.BeginTx(ctx, nil)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to start transaction in Storage.SaveUser() | Error: %v", traceID, err)
		return appErrors.New(appErrors.ErrInternal, "Registration failed, try again later.")
	}

	userQuery := "INSERT INTO user (id, username, hashed_password, email, role, created_at) VALUES (?, ?, ?, ?, ?, ?);"
	if _, err := txn.Exec(userQuery, user.ID, user.UserName, user.PasswordHashed, user.Email, user.Role, user.CreatedAt); err != nil {
		txn.Rollback()
		if isDuplicateKey(err) {
			return appErrors.New(appErrors.ErrConflict, "This username or email already taken.")
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to save user in Storage.SaveUser() | Error: %v", traceID, err)
		return appErrors.New(appErrors.ErrInternal, "Registration failed, try again later.")
	}

	memberQuery := "INSERT INTO member (id, user_id, full_name, phone, email, joined_at, role) VALUES (?, ?, ?, ?, ?, ?, ?);"
	if _, err := txn.Exec(memberQuery, member.ID, member.UserID, member.FullName, member.Phone, member.Email, member.JoinedAt, member.Role); err != nil {
		txn.Rollback()
		logging.Logger.Errorf("[TraceID=%s] | failed to save member profile in Storage.SaveUser() | Error: %v", traceID, err)
		return appErrors.New(appErrors.ErrInternal, "Registration failed, try again later.")
	}

	if err := txn.Commit(); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to commit in Storage.SaveUser() | Error: %v", traceID, err)
		return appErrors.New(appErrors.ErrInternal, "Registration failed, try again later.")
	}
	return nil
}

func (mySql *MySQLStorage) ValidateUser(ctx context.Context, credentials auth.UserCredentialsPure) (auth.User, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT id, username, hashed_password, email, role, created_at FROM user WHERE username = ?;"

	var user auth.User
	err := mySql.db.QueryRow(query, strings.ToLower(credentials.UserName)).Scan(
		&user.ID,
		&user.UserName,
		&user.PasswordHashed,
		&user.Email,
		&user.Role,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.User{}, appErrors.New(appErrors.ErrAuth, "Username or password is wrong.")
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to get user in Storage.ValidateUser() | Error: %v", traceID, err)
		return auth.User{}, appErrors.New(appErrors.ErrInternal, "Login failed, try again later.")
	}

	if !auth.ComparePasswords(user.PasswordHashed, credentials.PasswordPlain) {
		return auth.User{}, appErrors.New(appErrors.ErrAuth, "Username or password is wrong.")
	}
	return user, nil
}

func (mySql *MySQLStorage) IsUserExists(ctx context.Context, username string) (bool, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	var id string
	err := mySql.db.QueryRow("SELECT id FROM user WHERE username = ?;", strings.ToLower(username)).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to check user existence in Storage.IsUserExists() | Error: %v", traceID, err)
		return false, appErrors.New(appErrors.ErrInternal, "Failed to check username availability, try again later.")
	}
	return true, nil
}

func (mySql *MySQLStorage) IsEmailTaken(ctx context.Context, emailAddress string) (bool, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	var id string
	err := mySql.db.QueryRow("SELECT id FROM user WHERE email = ?;", strings.ToLower(emailAddress)).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to check email in Storage.IsEmailTaken() | Error: %v", traceID, err)
		return false, appErrors.New(appErrors.ErrInternal, "Failed to check email availability, try again later.")
	}
	return true, nil
}

func (mySql *MySQLStorage) UpdatePassword(ctx context.Context, userId string, hashedPassword string) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	res, err := mySql.db.Exec("UPDATE user SET hashed_password = ? WHERE id = ?;", hashedPassword, userId)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to update password in Storage.UpdatePassword() | Error: %v", traceID, err)
		return appErrors.New(appErrors.ErrInternal, "Failed to reset password, try again later.")
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to check affected rows in Storage.UpdatePassword() | Error: %v", traceID, err)
		return appErrors.New(appErrors.ErrInternal, "Failed to reset password, try again later.")
	}
	if rowsAffected == 0 {
		return appErrors.New(appErrors.ErrNotFound, "User not found.")
	}
	return nil
}

func (mySql *MySQLStorage) GetUserByUserName(ctx context.Context, username string) (auth.User, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT id, username, hashed_password, email, role, created_at FROM user WHERE username = ?;"

	var user auth.User
	err := mySql.db.QueryRow(query, strings.ToLower(username)).Scan(
		&user.ID,
		&user.UserName,
		&user.PasswordHashed,
		&user.Email,
		&user.Role,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.User{}, appErrors.New(appErrors.ErrNotFound, "User not found.")
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to get user in Storage.GetUserByUserName() | Error: %v", traceID, err)
		return auth.User{}, appErrors.New(appErrors.ErrInternal, "Failed to get user, try again later.")
	}
	return user, nil
}

func (mySql *MySQLStorage) SaveSession(ctx context.Context, session auth.Session) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "INSERT INTO session (id, token, created_at, expire_at, user_id) VALUES (?, ?, ?, ?, ?);"
	_, err := mySql.db.Exec(query, session.ID, session.Token, session.CreatedAt, session.ExpireAt, session.UserID)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to save session in Storage.SaveSession() | Error: %v", traceID, err)
		return appErrors.New(appErrors.ErrInternal, "Failed to create session, try again later.")
	}
	return nil
}

func (mySql *MySQLStorage) GetSessionByToken(ctx context.Context, token string) (auth.Session, error) {
	query := `SELECT id, token, created_at, expire_at, user_id FROM session WHERE token = ?`
	var dbS dbSession

	err := mySql.db.QueryRow(query, token).Scan(
		&dbS.ID,
		&dbS.Token,
		&dbS.CreatedAt,
		&dbS.ExpireAt,
		&dbS.UserID,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.Session{}, appErrors.New(appErrors.ErrAuth, "Session does not exist, please login.")
		}
		return auth.Session{}, err
	}

	return auth.Session{
		ID:        dbS.ID,
		Token:     dbS.Token,
		CreatedAt: dbS.CreatedAt,
		ExpireAt:  dbS.ExpireAt,
		UserID:    dbS.UserID,
	}, nil
}

func (mySql *MySQLStorage) CheckSession(ctx context.Context, token string) (string, error) {
	query := `SELECT user_id, expire_at FROM session WHERE token = ?`

	var userID string
	var expireAt time.Time
	traceID := contextutil.TraceIDFromContext(ctx)

	err := mySql.db.QueryRow(query, token).Scan(&userID, &expireAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.New(appErrors.ErrAuth, "Session does not exist, please login.")
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to check session existence in Storage.CheckSession() | Error: %v", traceID, err)
		return "", appErrors.New(appErrors.ErrInternal, "Failed to check session, please try again later.")
	}

	now := time.Now().UTC()
	if expireAt.Before(now) {
		return "", appErrors.New(appErrors.ErrAuth, "Your session expired, please login again.")
	}

	return userID, nil
}

func (mySql *MySQLStorage) UpdateSession(ctx context.Context, userId string, newExpireDate time.Time) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := `UPDATE session SET expire_at = ? WHERE user_id = ?`
	res, err := mySql.db.Exec(query, newExpireDate, userId)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to update session in Storage.UpdateSession() | Error: %v", traceID, err)
		return appErrors.New(appErrors.ErrInternal, "Failed to check session, please try again later.")
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to check affected rows in Storage.UpdateSession() | Error: %v", traceID, err)
		return appErrors.New(appErrors.ErrInternal, "Failed to check session, please try again later.")
	}

	if rowsAffected == 0 {
		return appErrors.New(appErrors.ErrAuth, "Session does not exist, please login.")
	}

	return nil
}

func (mySql *MySQLStorage) DeleteSession(ctx context.Context, token string) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	_, err := mySql.db.Exec("DELETE FROM session WHERE token = ?;", token)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to delete session in Storage.DeleteSession() | Error: %v", traceID, err)
		return appErrors.New(appErrors.ErrInternal, "Logout failed, try again later.")
	}
	return nil
}

func scanMember(row interface{ Scan(...interface{}) error }) (chama.Member, error) {
	var dbM dbMember
	err := row.Scan(&dbM.ID, &dbM.UserID, &dbM.FullName, &dbM.Phone, &dbM.Email, &dbM.JoinedAt, &dbM.Role)
	if err != nil {
		return chama.Member{}, err
	}
	return chama.Member{
		ID:       dbM.ID,
		UserID:   dbM.UserID,
		FullName: dbM.FullName,
		Phone:    dbM.Phone,
		Email:    dbM.Email,
		JoinedAt: dbM.JoinedAt,
		Role:     dbM.Role,
	}, nil
}

const memberColumns = "id, IFNULL(user_id, ''), full_name, IFNULL(phone, ''), IFNULL(email, ''), joined_at, role"

func (mySql *MySQLStorage) SaveMember(ctx context.Context, member chama.Member) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "INSERT INTO member (id, user_id, full_name, phone, email, joined_at, role) VALUES (?, NULLIF(?, ''), ?, ?, ?, ?, ?);"
	_, err := mySql.db.Exec(query, member.ID, member.UserID, member.FullName, member.Phone, member.Email, member.JoinedAt, member.Role)
	if err != nil {
		if isDuplicateKey(err) {
			return appErrors.New(appErrors.ErrConflict, "The member already exists.")
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to save member in Storage.SaveMember() | Error: %v", traceID, err)
		return appErrors.New(appErrors.ErrInternal, "Failed to save the member, try again later.")
	}
	return nil
}

func (mySql *MySQLStorage) GetMemberByUserId(ctx context.Context, userId string) (chama.Member, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT " + memberColumns + " FROM member WHERE user_id = ?;"
	member, err := scanMember(mySql.db.QueryRow(query, userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return chama.Member{}, appErrors.New(appErrors.ErrNotFound, "Member profile not found.")
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to get member in Storage.GetMemberByUserId() | Error: %v", traceID, err)
		return chama.Member{}, appErrors.New(appErrors.ErrInternal, "Failed to get member, try again later.")
	}
	return member, nil
}

func (mySql *MySQLStorage) GetMemberById(ctx context.Context, memberId string) (chama.Member, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT " + memberColumns + " FROM member WHERE id = ?;"
	member, err := scanMember(mySql.db.QueryRow(query, memberId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return chama.Member{}, appErrors.New(appErrors.ErrNotFound, "Member not found.")
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to get member in Storage.GetMemberById() | Error: %v", traceID, err)
		return chama.Member{}, appErrors.New(appErrors.ErrInternal, "Failed to get member, try again later.")
	}
	return member, nil
}

func (mySql *MySQLStorage) ListMembers(ctx context.Context) ([]chama.Member, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT " + memberColumns + " FROM member ORDER BY joined_at ASC;"
	rows, err := mySql.db.Query(query)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to list members in Storage.ListMembers() | Error: %v", traceID, err)
		return nil, appErrors.New(appErrors.ErrInternal, "Failed to get members, try again later.")
	}
	defer rows.Close()

	var members []chama.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to scan row in Storage.ListMembers() | Error: %v", traceID, err)
			return nil, appErrors.New(appErrors.ErrInternal, "Failed to get members, try again later.")
		}
		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to iterate rows in Storage.ListMembers() | Error: %v", traceID, err)
		return nil, appErrors.New(appErrors.ErrInternal, "Failed to get members, try again later.")
	}
	return members, nil
}

func (mySql *MySQLStorage) UpdateMember(ctx context.Context, fields chama.UpdateMemberRequest) (chama.Member, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := `UPDATE member SET
		full_name = COALESCE(NULLIF(?, ''), full_name),
		phone = COALESCE(NULLIF(?, ''), phone),
		email = COALESCE(NULLIF(?, ''), email)
		WHERE id = ?;`
	res, err := mySql.db.Exec(query, fields.NewName, fields.NewPhone, fields.NewEmail, fields.MemberID)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to update member in Storage.UpdateMember() | Error: %v", traceID, err)
		return chama.Member{}, appErrors.New(appErrors.ErrInternal, "Failed to update profile, try again later.")
	}

	if _, err := res.RowsAffected(); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to check affected rows in Storage.UpdateMember() | Error: %v", traceID, err)
		return chama.Member{}, appErrors.New(appErrors.ErrInternal, "Failed to update profile, try again later.")
	}

	return mySql.GetMemberById(ctx, fields.MemberID)
}

// FindDuplicateMembers groups members sharing a non-empty phone or email.
func (mySql *MySQLStorage) FindDuplicateMembers(ctx context.Context) ([]chama.DuplicateMemberGroup, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	groupQueries := []struct {
		keyColumn string
		query     string
	}{
		{
			keyColumn: "phone",
			query: "SELECT phone FROM member WHERE phone IS NOT NULL AND phone != '' " +
				"GROUP BY phone HAVING COUNT(*) > 1;",
		},
		{
			keyColumn: "email",
			query: "SELECT email FROM member WHERE email IS NOT NULL AND email != '' " +
				"GROUP BY email HAVING COUNT(*) > 1;",
		},
	}

	var groups []chama.DuplicateMemberGroup
	seenMember := make(map[string]bool)

	for _, gq := range groupQueries {
		rows, err := mySql.db.Query(gq.query)
		if err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to find duplicate keys in Storage.FindDuplicateMembers() | Error: %v", traceID, err)
			return nil, appErrors.New(appErrors.ErrInternal, "Failed to find duplicates, try again later.")
		}

		var keys []string
		for rows.Next() {
			var key string
			if err := rows.Scan(&key); err != nil {
				rows.Close()
				logging.Logger.Errorf("[TraceID=%s] | failed to scan key in Storage.FindDuplicateMembers() | Error: %v", traceID, err)
				return nil, appErrors.New(appErrors.ErrInternal, "Failed to find duplicates, try again later.")
			}
			keys = append(keys, key)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to iterate keys in Storage.FindDuplicateMembers() | Error: %v", traceID, err)
			return nil, appErrors.New(appErrors.ErrInternal, "Failed to find duplicates, try again later.")
		}

		for _, key := range keys {
			memberQuery := "SELECT " + memberColumns + " FROM member WHERE " + gq.keyColumn + " = ? ORDER BY joined_at ASC;"
			memberRows, err := mySql.db.Query(memberQuery, key)
			if err != nil {
				logging.Logger.Errorf("[TraceID=%s] | failed to load duplicate group in Storage.FindDuplicateMembers() | Error: %v", traceID, err)
				return nil, appErrors.New(appErrors.ErrInternal, "Failed to find duplicates, try again later.")
			}

			group := chama.DuplicateMemberGroup{Key: key}
			for memberRows.Next() {
				member, err := scanMember(memberRows)
				if err != nil {
					memberRows.Close()
					logging.Logger.Errorf("[TraceID=%s] | failed to scan member in Storage.FindDuplicateMembers() | Error: %v", traceID, err)
					return nil, appErrors.New(appErrors.ErrInternal, "Failed to find duplicates, try again later.")
				}
				if seenMember[member.ID] {
					continue
				}
				seenMember[member.ID] = true
				group.Members = append(group.Members, member)
			}
			memberRows.Close()

			if len(group.Members) > 1 {
				groups = append(groups, group)
			}
		}
	}

	return groups, nil
}

func (mySql *MySQLStorage) ReassignContributions(ctx context.Context, fromMemberId string, toMemberId string) (int64, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	// IGNORE skips rows that would collide with an existing
	// (member, year, month) of the keeper; those are dropped with the
	// duplicate member.
	query := "UPDATE IGNORE contribution SET member_id = ? WHERE member_id = ?;"
	res, err := mySql.db.Exec(query, toMemberId, fromMemberId)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to reassign contributions in Storage.ReassignContributions() | Error: %v", traceID, err)
		return 0, appErrors.New(appErrors.ErrInternal, "Failed to consolidate members, try again later.")
	}

	moved, err := res.RowsAffected()
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to check affected rows in Storage.ReassignContributions() | Error: %v", traceID, err)
		return 0, appErrors.New(appErrors.ErrInternal, "Failed to consolidate members, try again later.")
	}
	return moved, nil
}

func (mySql *MySQLStorage) DeleteMember(ctx context.Context, memberId string) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	res, err := mySql.db.Exec("DELETE FROM member WHERE id = ?;", memberId)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to delete member in Storage.DeleteMember() | Error: %v", traceID, err)
		return appErrors.New(appErrors.ErrInternal, "Failed to delete member, try again later.")
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to check affected rows in Storage.DeleteMember() | Error: %v", traceID, err)
		return appErrors.New(appErrors.ErrInternal, "Failed to delete member, try again later.")
	}
	if rowsAffected == 0 {
		return appErrors.New(appErrors.ErrNotFound, "Member not found.")
	}
	return nil
}

// UpsertContributions writes the batch in one transaction with
// ON DUPLICATE KEY UPDATE on uq_member_month, so re-submitting the same
// months is idempotent.
func (mySql *MySQLStorage) UpsertContributions(ctx context.Context, rows []chama.Contribution) error {
	traceID := contextutil.TraceIDFromContext(ctx)
	if len(rows) == 0 {
		return nil
	}

	txn, err := mySql.db.BeginTx(ctx, nil)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to start transaction in Storage.UpsertContributions() | Error: %v", traceID, err)
		return appErrors.New(appErrors.ErrInternal, "Failed to save contributions, try again later.")
	}

	query := `INSERT INTO contribution (id, member_id, amount, month, year, paid, type, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			amount = VALUES(amount),
			paid = VALUES(paid),
			type = VALUES(type),
			recorded_at = VALUES(recorded_at);`

	stmt, err := txn.Prepare(query)
	if err != nil {
		txn.Rollback()
		logging.Logger.Errorf("[TraceID=%s] | failed to prepare upsert in Storage.UpsertContributions() | Error: %v", traceID, err)
		return appErrors.New(appErrors.ErrInternal, "Failed to save contributions, try again later.")
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err := stmt.Exec(row.ID, row.MemberID, row.Amount, int(row.Month), row.Year, row.Paid, row.Type, row.RecordedAt)
		if err != nil {
			txn.Rollback()
			logging.Logger.Errorf("[TraceID=%s] | failed to upsert contribution in Storage.UpsertContributions() | Error: %v", traceID, err)
			return appErrors.New(appErrors.ErrInternal, "Failed to save contributions, try again later.")
		}
	}

	if err := txn.Commit(); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to commit in Storage.UpsertContributions() | Error: %v", traceID, err)
		return appErrors.New(appErrors.ErrInternal, "Failed to save contributions, try again later.")
	}
	return nil
}

func (mySql *MySQLStorage) GetFilteredContributions(ctx context.Context, filters *chama.ContributionList) ([]chama.Contribution, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT id, member_id, amount, month, year, paid, IFNULL(type, ''), recorded_at FROM contribution WHERE 1=1"
	var args []interface{}

	if !filters.IsAllNil {
		if len(filters.MemberIDs) > 0 {
			query += " AND member_id IN (?" + strings.Repeat(",?", len(filters.MemberIDs)-1) + ")"
			for _, id := range filters.MemberIDs {
				args = append(args, id)
			}
		}
		if filters.Year != 0 {
			query += " AND year = ?"
			args = append(args, filters.Year)
		}
		if filters.Month != 0 {
			query += " AND month = ?"
			args = append(args, int(filters.Month))
		}
		if filters.Type != "" {
			query += " AND type = ?"
			args = append(args, filters.Type)
		}
		if filters.PaidOnly {
			query += " AND paid = TRUE"
		}
	}

	query += " ORDER BY year ASC, month ASC;"

	rows, err := mySql.db.Query(query, args...)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to get contributions in Storage.GetFilteredContributions() | Error: %v", traceID, err)
		return nil, appErrors.New(appErrors.ErrInternal, "Failed to get contributions, try again later.")
	}
	defer rows.Close()

	var contributions []chama.Contribution
	for rows.Next() {
		var dbC dbContribution
		err := rows.Scan(&dbC.ID, &dbC.MemberID, &dbC.Amount, &dbC.Month, &dbC.Year, &dbC.Paid, &dbC.Type, &dbC.RecordedAt)
		if err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to scan row in Storage.GetFilteredContributions() | Error: %v", traceID, err)
			return nil, appErrors.New(appErrors.ErrInternal, "Failed to get contributions, try again later.")
		}
		contributions = append(contributions, chama.Contribution{
			ID:         dbC.ID,
			MemberID:   dbC.MemberID,
			Amount:     dbC.Amount,
			Month:      time.Month(dbC.Month),
			Year:       dbC.Year,
			Paid:       dbC.Paid,
			Type:       dbC.Type,
			RecordedAt: dbC.RecordedAt,
		})
	}

	if err := rows.Err(); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to iterate rows in Storage.GetFilteredContributions() | Error: %v", traceID, err)
		return nil, appErrors.New(appErrors.ErrInternal, "Failed to get contributions, try again later.")
	}
	return contributions, nil
}

// DeleteDuplicateContributions keeps the earliest recorded row per
// (member, year, month) and removes the rest.
func (mySql *MySQLStorage) DeleteDuplicateContributions(ctx context.Context) (int64, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := `DELETE c1 FROM contribution c1
		JOIN contribution c2
			ON c1.member_id = c2.member_id
			AND c1.year = c2.year
			AND c1.month = c2.month
			AND (c1.recorded_at > c2.recorded_at
				OR (c1.recorded_at = c2.recorded_at AND c1.id > c2.id));`

	res, err := mySql.db.Exec(query)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to delete duplicates in Storage.DeleteDuplicateContributions() | Error: %v", traceID, err)
		return 0, appErrors.New(appErrors.ErrInternal, "Failed to clean up duplicates, try again later.")
	}

	removed, err := res.RowsAffected()
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to check affected rows in Storage.DeleteDuplicateContributions() | Error: %v", traceID, err)
		return 0, appErrors.New(appErrors.ErrInternal, "Failed to clean up duplicates, try again later.")
	}
	return removed, nil
}

func (mySql *MySQLStorage) SaveExpense(ctx context.Context, expense chama.Expense) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := `INSERT INTO expense (id, description, amount, date, member_id, project_id, status, approved_by, created_at)
		VALUES (?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, NULLIF(?, ''), ?);`
	_, err := mySql.db.Exec(query, expense.ID, expense.Description, expense.Amount, expense.Date,
		expense.MemberID, expense.ProjectID, expense.Status, expense.ApprovedBy, expense.CreatedAt)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to save expense in Storage.SaveExpense() | Error: %v", traceID, err)
		return appErrors.New(appErrors.ErrInternal, "Failed to save the expense, try again later.")
	}
	return nil
}

func (mySql *MySQLStorage) GetFilteredExpenses(ctx context.Context, filters *chama.ExpenseList) ([]chama.Expense, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := `SELECT id, description, amount, date, IFNULL(member_id, ''), IFNULL(project_id, ''),
		status, IFNULL(approved_by, ''), created_at FROM expense WHERE 1=1`
	var args []interface{}

	if !filters.IsAllNil {
		if len(filters.Statuses) > 0 {
			query += " AND status IN (?" + strings.Repeat(",?", len(filters.Statuses)-1) + ")"
			for _, status := range filters.Statuses {
				args = append(args, status)
			}
		}
		if filters.ProjectID != "" {
			query += " AND project_id = ?"
			args = append(args, filters.ProjectID)
		}
		if !filters.StartDate.IsZero() {
			query += " AND date >= ?"
			args = append(args, filters.StartDate)
		}
		if !filters.EndDate.IsZero() {
			query += " AND date <= ?"
			args = append(args, filters.EndDate)
		}
	}

	query += " ORDER BY date DESC;"

	rows, err := mySql.db.Query(query, args...)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to get expenses in Storage.GetFilteredExpenses() | Error: %v", traceID, err)
		return nil, appErrors.New(appErrors.ErrInternal, "Failed to get expenses, try again later.")
	}
	defer rows.Close()

	var expenses []chama.Expense
	for rows.Next() {
		var e chama.Expense
		err := rows.Scan(&e.ID, &e.Description, &e.Amount, &e.Date, &e.MemberID, &e.ProjectID, &e.Status, &e.ApprovedBy, &e.CreatedAt)
		if err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to scan row in Storage.GetFilteredExpenses() | Error: %v", traceID, err)
			return nil, appErrors.New(appErrors.ErrInternal, "Failed to get expenses, try again later.")
		}
		expenses = append(expenses, e)
	}

	if err := rows.Err(); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to iterate rows in Storage.GetFilteredExpenses() | Error: %v", traceID, err)
		return nil, appErrors.New(appErrors.ErrInternal, "Failed to get expenses, try again later.")
	}
	return expenses, nil
}

func (mySql *MySQLStorage) UpdateExpenseStatus(ctx context.Context, expenseId string, status string, approverId string) (chama.Expense, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	res, err := mySql.db.Exec("UPDATE expense SET status = ?, approved_by = ? WHERE id = ?;", status, approverId, expenseId)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to update expense in Storage.UpdateExpenseStatus() | Error: %v", traceID, err)
		return chama.Expense{}, appErrors.New(appErrors.ErrInternal, "Failed to update the expense, try again later.")
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to check affected rows in Storage.UpdateExpenseStatus() | Error: %v", traceID, err)
		return chama.Expense{}, appErrors.New(appErrors.ErrInternal, "Failed to update the expense, try again later.")
	}
	if rowsAffected == 0 {
		return chama.Expense{}, appErrors.New(appErrors.ErrNotFound, "Expense not found.")
	}

	query := `SELECT id, description, amount, date, IFNULL(member_id, ''), IFNULL(project_id, ''),
		status, IFNULL(approved_by, ''), created_at FROM expense WHERE id = ?;`
	var e chama.Expense
	err = mySql.db.QueryRow(query, expenseId).Scan(&e.ID, &e.Description, &e.Amount, &e.Date,
		&e.MemberID, &e.ProjectID, &e.Status, &e.ApprovedBy, &e.CreatedAt)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to reload expense in Storage.UpdateExpenseStatus() | Error: %v", traceID, err)
		return chama.Expense{}, appErrors.New(appErrors.ErrInternal, "Failed to update the expense, try again later.")
	}
	return e, nil
}

func (mySql *MySQLStorage) SaveProject(ctx context.Context, project chama.CSRProject) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := `INSERT INTO csr_project (id, title, description, budget, start_date, end_date, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?);`
	_, err := mySql.db.Exec(query, project.ID, project.Title, project.Description, project.Budget,
		project.StartDate, project.EndDate, project.Status, project.CreatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return appErrors.New(appErrors.ErrConflict, "The project already exists.")
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to save project in Storage.SaveProject() | Error: %v", traceID, err)
		return appErrors.New(appErrors.ErrInternal, "Failed to save the project, try again later.")
	}
	return nil
}

func (mySql *MySQLStorage) ListProjects(ctx context.Context) ([]chama.CSRProject, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT id, title, IFNULL(description, ''), budget, start_date, end_date, status, created_at FROM csr_project ORDER BY created_at DESC;"
	rows, err := mySql.db.Query(query)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to list projects in Storage.ListProjects() | Error: %v", traceID, err)
		return nil, appErrors.New(appErrors.ErrInternal, "Failed to get projects, try again later.")
	}
	defer rows.Close()

	var projects []chama.CSRProject
	for rows.Next() {
		var p chama.CSRProject
		err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Budget, &p.StartDate, &p.EndDate, &p.Status, &p.CreatedAt)
		if err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to scan row in Storage.ListProjects() | Error: %v", traceID, err)
			return nil, appErrors.New(appErrors.ErrInternal, "Failed to get projects, try again later.")
		}
		projects = append(projects, p)
	}

	if err := rows.Err(); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to iterate rows in Storage.ListProjects() | Error: %v", traceID, err)
		return nil, appErrors.New(appErrors.ErrInternal, "Failed to get projects, try again later.")
	}
	return projects, nil
}

func (mySql *MySQLStorage) GetProjectById(ctx context.Context, projectId string) (chama.CSRProject, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT id, title, IFNULL(description, ''), budget, start_date, end_date, status, created_at FROM csr_project WHERE id = ?;"
	var p chama.CSRProject
	err := mySql.db.QueryRow(query, projectId).Scan(&p.ID, &p.Title, &p.Description, &p.Budget, &p.StartDate, &p.EndDate, &p.Status, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return chama.CSRProject{}, appErrors.New(appErrors.ErrNotFound, "Project not found.")
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to get project in Storage.GetProjectById() | Error: %v", traceID, err)
		return chama.CSRProject{}, appErrors.New(appErrors.ErrInternal, "Failed to get project, try again later.")
	}
	return p, nil
}

func (mySql *MySQLStorage) SaveProjectContribution(ctx context.Context, contribution chama.CSRContribution) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "INSERT INTO csr_contribution (id, project_id, member_id, amount, date) VALUES (?, ?, ?, ?, ?);"
	_, err := mySql.db.Exec(query, contribution.ID, contribution.ProjectID, contribution.MemberID, contribution.Amount, contribution.Date)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to save project contribution in Storage.SaveProjectContribution() | Error: %v", traceID, err)
		return appErrors.New(appErrors.ErrInternal, "Failed to save the contribution, try again later.")
	}
	return nil
}

func (mySql *MySQLStorage) ListProjectContributions(ctx context.Context, projectId string) ([]chama.CSRContribution, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT id, project_id, member_id, amount, date FROM csr_contribution WHERE project_id = ? ORDER BY date DESC;"
	rows, err := mySql.db.Query(query, projectId)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to list project contributions in Storage.ListProjectContributions() | Error: %v", traceID, err)
		return nil, appErrors.New(appErrors.ErrInternal, "Failed to get contributions, try again later.")
	}
	defer rows.Close()

	var contributions []chama.CSRContribution
	for rows.Next() {
		var c chama.CSRContribution
		err := rows.Scan(&c.ID, &c.ProjectID, &c.MemberID, &c.Amount, &c.Date)
		if err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to scan row in Storage.ListProjectContributions() | Error: %v", traceID, err)
			return nil, appErrors.New(appErrors.ErrInternal, "Failed to get contributions, try again later.")
		}
		contributions = append(contributions, c)
	}

	if err := rows.Err(); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to iterate rows in Storage.ListProjectContributions() | Error: %v", traceID, err)
		return nil, appErrors.New(appErrors.ErrInternal, "Failed to get contributions, try again later.")
	}
	return contributions, nil
}
