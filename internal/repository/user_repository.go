package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/seminars/internal/model"
	"github.com/iliyamo/seminars/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NewUser carries the data of a sign-up.
type NewUser struct {
	Username  string
	Email     string
	Password  string
	Role      string
	FirstName string
	LastName  string
}

// Create hashes the password, inserts the user and returns its id.
// Duplicate e-mail addresses or usernames yield ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, nu NewUser, cost int) (uint64, error) {
	var u model.User
	if err := u.SetUsername(strings.TrimSpace(nu.Username)); err != nil {
		return 0, err
	}
	email := strings.ToLower(strings.TrimSpace(nu.Email))
	hash, err := utils.HashPassword(nu.Password, cost)
	if err != nil {
		return 0, err
	}
	role := nu.Role
	if role == "" {
		role = model.RoleFrontEnd
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, role, first_name, last_name) VALUES (?,?,?,?,?,?)",
		u.Username, email, hash, role, nu.FirstName, nu.LastName)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

const userColumns = "id, username, email, password_hash, role, name, first_name, last_name, is_active, created_at, updated_at"

func userDest(u *model.User) []any {
	return []any{&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Name, &u.FirstName, &u.LastName, &u.IsActive, &u.CreatedAt, &u.UpdatedAt}
}

// GetByEmail fetches a user by normalized e-mail.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := r.DB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email).Scan(userDest(&u)...)
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id).Scan(userDest(&u)...)
	return u, err
}

// GetFrontEndUser loads a user with its front-end groups and their default
// categories and organizers.
func (r *UserRepo) GetFrontEndUser(ctx context.Context, id uint64) (*model.FrontEndUser, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	fe := &model.FrontEndUser{User: u}

	rows, err := r.DB.QueryContext(ctx, `SELECT g.id, g.title, g.publish_setting, g.event_records_pid, g.auxiliary_records_pid, g.reviewer
FROM fe_groups g JOIN users_fe_groups_mm mm ON mm.record_id = g.id
WHERE mm.user_id = ? ORDER BY mm.sorting, g.id`, id)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		g := &model.FrontEndUserGroup{}
		if err := rows.Scan(&g.ID, &g.Title, &g.PublishSetting, &g.EventRecordsPID, &g.AuxiliaryRecordsPID, &g.ReviewerID); err != nil {
			rows.Close()
			return nil, err
		}
		fe.Groups = append(fe.Groups, g)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, g := range fe.Groups {
		if g.DefaultCategoryIDs, err = r.groupIDs(ctx, "fe_groups_categories_mm", g.ID); err != nil {
			return nil, err
		}
		if g.DefaultOrganizerIDs, err = r.groupIDs(ctx, "fe_groups_organizers_mm", g.ID); err != nil {
			return nil, err
		}
	}
	return fe, nil
}

func (r *UserRepo) groupIDs(ctx context.Context, table string, groupID uint64) ([]uint64, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT record_id FROM "+table+" WHERE group_id = ? ORDER BY sorting", groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetBackEndUser loads an administrator with its own folders and groups.
func (r *UserRepo) GetBackEndUser(ctx context.Context, id uint64) (*model.BackEndUser, error) {
	be := &model.BackEndUser{}
	dest := append(userDest(&be.User), &be.EventFolder, &be.RegistrationFolder, &be.AuxiliaryRecordsFolder)
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+", event_folder, registration_folder, auxiliary_records_folder FROM users WHERE id=? LIMIT 1", id).
		Scan(dest...)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT g.id, g.title, g.event_folder, g.registration_folder, g.auxiliary_records_folder
FROM be_groups g JOIN users_be_groups_mm mm ON mm.record_id = g.id
WHERE mm.user_id = ? ORDER BY mm.sorting, g.id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		g := &model.BackEndUserGroup{}
		if err := rows.Scan(&g.ID, &g.Title, &g.EventFolder, &g.RegistrationFolder, &g.AuxiliaryRecordsFolder); err != nil {
			return nil, err
		}
		be.Groups = append(be.Groups, g)
	}
	return be, rows.Err()
}

// FindByUsernames resolves usernames to front-end users, keeping the
// requested order and skipping unknown names.
func (r *UserRepo) FindByUsernames(ctx context.Context, names []string) ([]*model.FrontEndUser, error) {
	if len(names) == 0 {
		return nil, nil
	}
	args := make([]any, len(names))
	for i, n := range names {
		args[i] = n
	}
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users WHERE username IN ("+placeholders(len(names))+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byName := map[string]*model.FrontEndUser{}
	for rows.Next() {
		fe := &model.FrontEndUser{}
		if err := rows.Scan(userDest(&fe.User)...); err != nil {
			return nil, err
		}
		byName[fe.Username] = fe
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var out []*model.FrontEndUser
	for _, n := range names {
		if fe, ok := byName[n]; ok {
			out = append(out, fe)
		}
	}
	return out, nil
}
