package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// userRepo implements UserRepository.
type userRepo struct {
	pool *pgxpool.Pool
}

const userColumns = "id, username, nickname, registered_at"

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Nickname, &u.RegisteredAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	defer observeDB(ctx, "users.get_by_id")()
	row := r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	return scanUser(row)
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*User, error) {
	defer observeDB(ctx, "users.get_by_username")()
	row := r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE username = $1", username)
	return scanUser(row)
}

func (r *userRepo) List(ctx context.Context) ([]User, error) {
	defer observeDB(ctx, "users.list")()
	rows, err := r.pool.Query(ctx, "SELECT "+userColumns+" FROM users ORDER BY username")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Nickname, &u.RegisteredAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// spaceRepo implements SpaceRepository.
type spaceRepo struct {
	pool *pgxpool.Pool
}

const spaceColumns = "id, name, description, color, owner_user_id, visibility, created_at"

func scanSpace(row pgx.Row) (*Space, error) {
	var s Space
	if err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Color, &s.OwnerUserID, &s.Visibility, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func scanSpaces(rows pgx.Rows) ([]Space, error) {
	defer rows.Close()
	var spaces []Space
	for rows.Next() {
		var s Space
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Color, &s.OwnerUserID, &s.Visibility, &s.CreatedAt); err != nil {
			return nil, err
		}
		spaces = append(spaces, s)
	}
	return spaces, rows.Err()
}

func (r *spaceRepo) GetByID(ctx context.Context, id uuid.UUID) (*Space, error) {
	defer observeDB(ctx, "spaces.get_by_id")()
	row := r.pool.QueryRow(ctx, "SELECT "+spaceColumns+" FROM spaces WHERE id = $1", id)
	return scanSpace(row)
}

func (r *spaceRepo) GetByName(ctx context.Context, name string) (*Space, error) {
	defer observeDB(ctx, "spaces.get_by_name")()
	row := r.pool.QueryRow(ctx, "SELECT "+spaceColumns+" FROM spaces WHERE name = $1", name)
	return scanSpace(row)
}

func (r *spaceRepo) ListMemberSpaces(ctx context.Context, userID uuid.UUID) ([]Space, error) {
	defer observeDB(ctx, "spaces.list_member")()
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT `+spaceColumns+` FROM spaces s
		LEFT JOIN space_members m ON m.space_id = s.id
		WHERE s.owner_user_id = $1 OR m.user_id = $1
		ORDER BY name`, userID)
	if err != nil {
		return nil, err
	}
	return scanSpaces(rows)
}

func (r *spaceRepo) ListOpenSpaces(ctx context.Context, maxPolicy AccessPolicy) ([]Space, error) {
	defer observeDB(ctx, "spaces.list_open")()
	rows, err := r.pool.Query(ctx,
		"SELECT "+spaceColumns+" FROM spaces WHERE visibility < $1 ORDER BY name", maxPolicy)
	if err != nil {
		return nil, err
	}
	return scanSpaces(rows)
}

func (r *spaceRepo) IsMember(ctx context.Context, spaceID, userID uuid.UUID) (bool, error) {
	defer observeDB(ctx, "spaces.is_member")()
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM spaces s
			LEFT JOIN space_members m ON m.space_id = s.id
			WHERE s.id = $1 AND (s.owner_user_id = $2 OR m.user_id = $2)
		)`, spaceID, userID).Scan(&ok)
	return ok, err
}

// fileRepo implements FileRepository.
type fileRepo struct {
	pool *pgxpool.Pool
}

const fileColumns = "id, owner_user_id, space_id, file_name, file_hash, content_type, size_bytes, access_policy, uploaded_at"

func scanFile(row pgx.Row) (*FileResource, error) {
	var f FileResource
	err := row.Scan(&f.ID, &f.OwnerUserID, &f.SpaceID, &f.FileName, &f.FileHash,
		&f.ContentType, &f.SizeBytes, &f.AccessPolicy, &f.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (r *fileRepo) GetByID(ctx context.Context, id uuid.UUID) (*FileResource, error) {
	defer observeDB(ctx, "files.get_by_id")()
	row := r.pool.QueryRow(ctx, "SELECT "+fileColumns+" FROM files WHERE id = $1", id)
	return scanFile(row)
}

func (r *fileRepo) Find(ctx context.Context, ownerID uuid.UUID, spaceID *uuid.UUID, policy AccessPolicy, fileName string) (*FileResource, error) {
	defer observeDB(ctx, "files.find")()
	var row pgx.Row
	if spaceID != nil {
		row = r.pool.QueryRow(ctx, "SELECT "+fileColumns+` FROM files
			WHERE space_id = $1 AND access_policy = $2 AND file_name = $3`,
			*spaceID, policy, fileName)
	} else {
		row = r.pool.QueryRow(ctx, "SELECT "+fileColumns+` FROM files
			WHERE owner_user_id = $1 AND space_id IS NULL AND access_policy = $2 AND file_name = $3`,
			ownerID, policy, fileName)
	}
	return scanFile(row)
}

func (r *fileRepo) ListByPolicy(ctx context.Context, ownerID uuid.UUID, spaceID *uuid.UUID, policy AccessPolicy) ([]FileResource, error) {
	defer observeDB(ctx, "files.list_by_policy")()
	var (
		rows pgx.Rows
		err  error
	)
	if spaceID != nil {
		rows, err = r.pool.Query(ctx, "SELECT "+fileColumns+` FROM files
			WHERE space_id = $1 AND access_policy = $2 ORDER BY file_name`, *spaceID, policy)
	} else {
		rows, err = r.pool.Query(ctx, "SELECT "+fileColumns+` FROM files
			WHERE owner_user_id = $1 AND space_id IS NULL AND access_policy = $2 ORDER BY file_name`,
			ownerID, policy)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []FileResource
	for rows.Next() {
		var f FileResource
		if err := rows.Scan(&f.ID, &f.OwnerUserID, &f.SpaceID, &f.FileName, &f.FileHash,
			&f.ContentType, &f.SizeBytes, &f.AccessPolicy, &f.UploadedAt); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (r *fileRepo) CountByHash(ctx context.Context, hash string) (int, error) {
	defer observeDB(ctx, "files.count_by_hash")()
	var n int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM files WHERE file_hash = $1", hash).Scan(&n)
	return n, err
}

func (r *fileRepo) Insert(ctx context.Context, f FileResource) error {
	defer observeDB(ctx, "files.insert")()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO files (id, owner_user_id, space_id, file_name, file_hash, content_type, size_bytes, access_policy, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		f.ID, f.OwnerUserID, f.SpaceID, f.FileName, f.FileHash, f.ContentType, f.SizeBytes, f.AccessPolicy, f.UploadedAt)
	return err
}

func (r *fileRepo) Update(ctx context.Context, f FileResource) error {
	defer observeDB(ctx, "files.update")()
	tag, err := r.pool.Exec(ctx, `
		UPDATE files SET space_id = $2, file_name = $3, file_hash = $4, content_type = $5,
			size_bytes = $6, access_policy = $7, uploaded_at = $8
		WHERE id = $1`,
		f.ID, f.SpaceID, f.FileName, f.FileHash, f.ContentType, f.SizeBytes, f.AccessPolicy, f.UploadedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *fileRepo) Delete(ctx context.Context, id uuid.UUID) error {
	defer observeDB(ctx, "files.delete")()
	tag, err := r.pool.Exec(ctx, "DELETE FROM files WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// calendarRepo implements CalendarRepository.
type calendarRepo struct {
	pool *pgxpool.Pool
}

const calendarColumns = `id, owner_user_id, space_id, access_policy, summary, description, location,
	start_date, end_date, is_all_day, recurrence_frequency, recurrence_interval, recurrence_count,
	recurrence_until, sequence, created_at, last_modified`

func scanEntry(row pgx.Row) (*CalendarEntry, error) {
	var e CalendarEntry
	err := row.Scan(&e.ID, &e.OwnerUserID, &e.SpaceID, &e.AccessPolicy, &e.Summary, &e.Description,
		&e.Location, &e.StartDate, &e.EndDate, &e.IsAllDay, &e.RecurrenceFrequency,
		&e.RecurrenceInterval, &e.RecurrenceCount, &e.RecurrenceUntil, &e.Sequence,
		&e.CreatedAt, &e.LastModified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func scanEntries(rows pgx.Rows) ([]CalendarEntry, error) {
	defer rows.Close()
	var entries []CalendarEntry
	for rows.Next() {
		var e CalendarEntry
		if err := rows.Scan(&e.ID, &e.OwnerUserID, &e.SpaceID, &e.AccessPolicy, &e.Summary,
			&e.Description, &e.Location, &e.StartDate, &e.EndDate, &e.IsAllDay,
			&e.RecurrenceFrequency, &e.RecurrenceInterval, &e.RecurrenceCount,
			&e.RecurrenceUntil, &e.Sequence, &e.CreatedAt, &e.LastModified); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *calendarRepo) Get(ctx context.Context, spaceID, id uuid.UUID) (*CalendarEntry, error) {
	defer observeDB(ctx, "calendar.get")()
	row := r.pool.QueryRow(ctx,
		"SELECT "+calendarColumns+" FROM calendar_entries WHERE space_id = $1 AND id = $2", spaceID, id)
	return scanEntry(row)
}

func (r *calendarRepo) ListBySpace(ctx context.Context, spaceID uuid.UUID) ([]CalendarEntry, error) {
	defer observeDB(ctx, "calendar.list_by_space")()
	rows, err := r.pool.Query(ctx,
		"SELECT "+calendarColumns+" FROM calendar_entries WHERE space_id = $1 ORDER BY start_date", spaceID)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func (r *calendarRepo) ListByIDs(ctx context.Context, spaceID uuid.UUID, ids []uuid.UUID) ([]CalendarEntry, error) {
	defer observeDB(ctx, "calendar.list_by_ids")()
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		"SELECT "+calendarColumns+" FROM calendar_entries WHERE space_id = $1 AND id = ANY($2)", spaceID, ids)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func (r *calendarRepo) MaxLastModified(ctx context.Context, spaceID uuid.UUID) (time.Time, error) {
	defer observeDB(ctx, "calendar.max_last_modified")()
	var latest *time.Time
	err := r.pool.QueryRow(ctx,
		"SELECT MAX(last_modified) FROM calendar_entries WHERE space_id = $1", spaceID).Scan(&latest)
	if err != nil {
		return time.Time{}, err
	}
	if latest == nil {
		return time.Time{}, nil
	}
	return *latest, nil
}

func (r *calendarRepo) Insert(ctx context.Context, e CalendarEntry) error {
	defer observeDB(ctx, "calendar.insert")()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO calendar_entries (`+calendarColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		e.ID, e.OwnerUserID, e.SpaceID, e.AccessPolicy, e.Summary, e.Description, e.Location,
		e.StartDate, e.EndDate, e.IsAllDay, e.RecurrenceFrequency, e.RecurrenceInterval,
		e.RecurrenceCount, e.RecurrenceUntil, e.Sequence, e.CreatedAt, e.LastModified)
	return err
}

func (r *calendarRepo) Update(ctx context.Context, e CalendarEntry) error {
	defer observeDB(ctx, "calendar.update")()
	tag, err := r.pool.Exec(ctx, `
		UPDATE calendar_entries SET access_policy = $3, summary = $4, description = $5, location = $6,
			start_date = $7, end_date = $8, is_all_day = $9, recurrence_frequency = $10,
			recurrence_interval = $11, recurrence_count = $12, recurrence_until = $13,
			sequence = $14, last_modified = $15
		WHERE space_id = $1 AND id = $2`,
		e.SpaceID, e.ID, e.AccessPolicy, e.Summary, e.Description, e.Location,
		e.StartDate, e.EndDate, e.IsAllDay, e.RecurrenceFrequency, e.RecurrenceInterval,
		e.RecurrenceCount, e.RecurrenceUntil, e.Sequence, e.LastModified)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *calendarRepo) Delete(ctx context.Context, spaceID, id uuid.UUID) error {
	defer observeDB(ctx, "calendar.delete")()
	tag, err := r.pool.Exec(ctx,
		"DELETE FROM calendar_entries WHERE space_id = $1 AND id = $2", spaceID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// appTokenRepo implements AppTokenRepository.
type appTokenRepo struct {
	pool *pgxpool.Pool
}

func (r *appTokenRepo) FindValidByUser(ctx context.Context, userID uuid.UUID) ([]AppToken, error) {
	defer observeDB(ctx, "app_tokens.find_valid")()
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, label, token_hash, created_at, expires_at, revoked_at
		FROM app_tokens
		WHERE user_id = $1 AND revoked_at IS NULL AND (expires_at IS NULL OR expires_at > now())`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []AppToken
	for rows.Next() {
		var t AppToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.Label, &t.TokenHash, &t.CreatedAt, &t.ExpiresAt, &t.RevokedAt); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
