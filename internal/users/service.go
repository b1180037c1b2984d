// Package users manages the account rows on the Users tab: role assignment,
// the Discord login bootstrap, and the optional username/password credential.
package users

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/payboard/payboard-backend/pkg/cache"
	"github.com/payboard/payboard-backend/pkg/config"
	"github.com/payboard/payboard-backend/pkg/enums"
	pkgerrors "github.com/payboard/payboard-backend/pkg/errors"
	"github.com/payboard/payboard-backend/pkg/logger"
	"github.com/payboard/payboard-backend/pkg/security"
	"github.com/payboard/payboard-backend/pkg/sheets"
)

const (
	timestampFormat = "2006-01-02 15:04:05"
	tempPasswordLen = 12
)

var timestampZone = time.FixedZone("UTC+3:30", 12600)

// Account is the wire form of one user row. The password hash never leaves
// the service.
type Account struct {
	DiscordID string     `json:"discordId"`
	Role      enums.Role `json:"role"`
	Username  string     `json:"username,omitempty"`
	Nickname  string     `json:"nickname,omitempty"`
	CreatedAt string     `json:"createdAt,omitempty"`
	UpdatedAt string     `json:"updatedAt,omitempty"`
}

// DisplayName prefers the nickname and falls back to the raw discord id.
func (a Account) DisplayName() string {
	if strings.TrimSpace(a.Nickname) != "" {
		return a.Nickname
	}
	return a.DiscordID
}

// cachedIdentity is what the user-role namespace stores per discord id.
type cachedIdentity struct {
	Role     enums.Role `json:"role"`
	Nickname string     `json:"nickname,omitempty"`
}

type roleCache interface {
	Get(ctx context.Context, ns cache.Namespace, key string) (string, bool, error)
	Set(ctx context.Context, ns cache.Namespace, key, value string) error
	Invalidate(ctx context.Context, ns cache.Namespace, key string) error
}

// Service is the account surface.
type Service interface {
	// EnsureAccount upserts the row for a Discord login. The first account
	// ever created becomes Admin; allow-listed ids are promoted on sight.
	EnsureAccount(ctx context.Context, discordID, username, globalName string) (*Account, error)
	LoginWithPassword(ctx context.Context, username, password string) (*Account, error)
	// Resolve returns role and nickname for an id, served from the user-role
	// cache when fresh.
	Resolve(ctx context.Context, discordID string) (*Account, error)
	List(ctx context.Context) ([]Account, error)
	SetRole(ctx context.Context, discordID string, role enums.Role) error
	// IssueCredentials provisions (or rotates) the username/password
	// credential and returns the generated password exactly once.
	IssueCredentials(ctx context.Context, discordID, username string) (string, error)
}

// Deps wires the account service's collaborators.
type Deps struct {
	Store    sheets.RowStore
	Cache    roleCache
	Password config.PasswordConfig
	Admin    config.AdminConfig
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	store    sheets.RowStore
	cache    roleCache
	password config.PasswordConfig
	admin    config.AdminConfig
	logg     *logger.Logger
	now      func() time.Time
	layout   *sheets.Layout
}

// NewService validates the wiring and returns the account service.
func NewService(deps Deps) (Service, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("row store required")
	}
	if deps.Cache == nil {
		return nil, fmt.Errorf("cache required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	layout, err := sheets.LayoutFor(sheets.TableUsers)
	if err != nil {
		return nil, err
	}
	return &service{
		store:    deps.Store,
		cache:    deps.Cache,
		password: deps.Password,
		admin:    deps.Admin,
		logg:     deps.Logger,
		now:      deps.Now,
		layout:   layout,
	}, nil
}

func (s *service) EnsureAccount(ctx context.Context, discordID, username, globalName string) (*Account, error) {
	discordID = strings.TrimSpace(discordID)
	if discordID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discord id is required")
	}

	rows, err := s.store.ListRows(ctx, sheets.TableUsers)
	if err != nil {
		return nil, err
	}

	idOff := s.layout.MustOffset(sheets.UserFieldDiscordID)
	existing := 0
	var found *sheets.Row
	for i := range rows {
		if strings.TrimSpace(rows[i].Cell(idOff)) == "" {
			continue
		}
		existing++
		if strings.TrimSpace(rows[i].Cell(idOff)) == discordID {
			found = &rows[i]
		}
	}

	now := s.now().In(timestampZone).Format(timestampFormat)

	nickname := strings.TrimSpace(globalName)
	if nickname == "" {
		nickname = strings.TrimSpace(username)
	}

	if found == nil {
		role := enums.RoleUser
		if existing == 0 || s.admin.IsAllowListed(discordID) {
			role = enums.RoleAdmin
		}
		cells := make([]string, s.layout.Width())
		cells[idOff] = discordID
		cells[s.layout.MustOffset(sheets.UserFieldRole)] = string(role)
		cells[s.layout.MustOffset(sheets.UserFieldUsername)] = strings.TrimSpace(username)
		cells[s.layout.MustOffset(sheets.UserFieldNickname)] = nickname
		cells[s.layout.MustOffset(sheets.UserFieldCreatedAt)] = now
		cells[s.layout.MustOffset(sheets.UserFieldUpdatedAt)] = now
		if err := s.store.AppendRow(ctx, sheets.TableUsers, cells); err != nil {
			return nil, err
		}
		s.dropCached(ctx, discordID)

		logCtx := s.logg.WithActor(ctx, discordID)
		s.logg.Info(logCtx, fmt.Sprintf("account created with role %s", role))

		account := s.accountFromCells(cells)
		return &account, nil
	}

	account := s.accountFromCells(found.Cells)
	updates := make(map[int]string)

	if s.admin.IsAllowListed(discordID) && account.Role != enums.RoleAdmin {
		updates[s.layout.MustOffset(sheets.UserFieldRole)] = string(enums.RoleAdmin)
		account.Role = enums.RoleAdmin
	}
	if nickname != "" && nickname != account.Nickname {
		updates[s.layout.MustOffset(sheets.UserFieldNickname)] = nickname
		account.Nickname = nickname
	}
	if u := strings.TrimSpace(username); u != "" && u != account.Username {
		updates[s.layout.MustOffset(sheets.UserFieldUsername)] = u
		account.Username = u
	}

	if len(updates) > 0 {
		updates[s.layout.MustOffset(sheets.UserFieldUpdatedAt)] = now
		if err := s.store.UpdateCells(ctx, sheets.TableUsers, found.Index, updates); err != nil {
			return nil, err
		}
		account.UpdatedAt = now
		s.dropCached(ctx, discordID)
	}
	return &account, nil
}

func (s *service) LoginWithPassword(ctx context.Context, username, password string) (*Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username and password are required")
	}

	rows, err := s.store.ListRows(ctx, sheets.TableUsers)
	if err != nil {
		return nil, err
	}

	usernameOff := s.layout.MustOffset(sheets.UserFieldUsername)
	hashOff := s.layout.MustOffset(sheets.UserFieldPasswordHash)
	for i := range rows {
		if strings.TrimSpace(rows[i].Cell(usernameOff)) != username {
			continue
		}
		hash := rows[i].Cell(hashOff)
		if hash == "" {
			break
		}
		ok, err := security.VerifyPassword(password, hash)
		if err != nil || !ok {
			break
		}
		account := s.accountFromCells(rows[i].Cells)
		return &account, nil
	}
	// One error for every failure shape; never reveal which part was wrong.
	return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
}

func (s *service) Resolve(ctx context.Context, discordID string) (*Account, error) {
	discordID = strings.TrimSpace(discordID)
	if discordID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discord id is required")
	}

	if raw, hit, err := s.cache.Get(ctx, cache.UserRole, discordID); err == nil && hit {
		var cached cachedIdentity
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return &Account{DiscordID: discordID, Role: cached.Role, Nickname: cached.Nickname}, nil
		}
	} else if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("user-role cache read failed: %v", err))
	}

	account, _, err := s.find(ctx, discordID)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(cachedIdentity{Role: account.Role, Nickname: account.Nickname}); err == nil {
		if err := s.cache.Set(ctx, cache.UserRole, discordID, string(encoded)); err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("user-role cache write failed: %v", err))
		}
	}
	return account, nil
}

func (s *service) List(ctx context.Context) ([]Account, error) {
	rows, err := s.store.ListRows(ctx, sheets.TableUsers)
	if err != nil {
		return nil, err
	}
	idOff := s.layout.MustOffset(sheets.UserFieldDiscordID)
	accounts := make([]Account, 0, len(rows))
	for _, row := range rows {
		if strings.TrimSpace(row.Cell(idOff)) == "" {
			continue
		}
		accounts = append(accounts, s.accountFromCells(row.Cells))
	}
	return accounts, nil
}

func (s *service) SetRole(ctx context.Context, discordID string, role enums.Role) error {
	if !role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", role))
	}
	account, row, err := s.find(ctx, discordID)
	if err != nil {
		return err
	}
	if account.Role == role {
		return nil
	}

	now := s.now().In(timestampZone).Format(timestampFormat)
	updates := map[int]string{
		s.layout.MustOffset(sheets.UserFieldRole):      string(role),
		s.layout.MustOffset(sheets.UserFieldUpdatedAt): now,
	}
	if err := s.store.UpdateCells(ctx, sheets.TableUsers, row.Index, updates); err != nil {
		return err
	}
	s.dropCached(ctx, account.DiscordID)

	logCtx := s.logg.WithActor(ctx, account.DiscordID)
	s.logg.Info(logCtx, fmt.Sprintf("role changed to %s", role))
	return nil
}

func (s *service) IssueCredentials(ctx context.Context, discordID, username string) (string, error) {
	account, row, err := s.find(ctx, discordID)
	if err != nil {
		return "", err
	}

	username = strings.TrimSpace(username)
	if username == "" {
		username = account.Username
	}
	if username == "" {
		username = account.DiscordID
	}

	password, err := security.GenerateTempPassword(tempPasswordLen)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating temporary password")
	}
	hash, err := security.HashPassword(password, s.password)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing temporary password")
	}

	now := s.now().In(timestampZone).Format(timestampFormat)
	updates := map[int]string{
		s.layout.MustOffset(sheets.UserFieldUsername):     username,
		s.layout.MustOffset(sheets.UserFieldPasswordHash): hash,
		s.layout.MustOffset(sheets.UserFieldUpdatedAt):    now,
	}
	if err := s.store.UpdateCells(ctx, sheets.TableUsers, row.Index, updates); err != nil {
		return "", err
	}
	s.dropCached(ctx, account.DiscordID)
	return password, nil
}

func (s *service) find(ctx context.Context, discordID string) (*Account, *sheets.Row, error) {
	discordID = strings.TrimSpace(discordID)
	if discordID == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "discord id is required")
	}
	rows, err := s.store.ListRows(ctx, sheets.TableUsers)
	if err != nil {
		return nil, nil, err
	}
	idOff := s.layout.MustOffset(sheets.UserFieldDiscordID)
	for i := range rows {
		if strings.TrimSpace(rows[i].Cell(idOff)) == discordID {
			account := s.accountFromCells(rows[i].Cells)
			return &account, &rows[i], nil
		}
	}
	return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("account %s not found", discordID))
}

func (s *service) accountFromCells(cells []string) Account {
	cell := func(field string) string {
		off := s.layout.MustOffset(field)
		if off >= len(cells) {
			return ""
		}
		return cells[off]
	}
	return Account{
		DiscordID: strings.TrimSpace(cell(sheets.UserFieldDiscordID)),
		Role:      enums.ParseRole(strings.TrimSpace(cell(sheets.UserFieldRole))),
		Username:  strings.TrimSpace(cell(sheets.UserFieldUsername)),
		Nickname:  strings.TrimSpace(cell(sheets.UserFieldNickname)),
		CreatedAt: cell(sheets.UserFieldCreatedAt),
		UpdatedAt: cell(sheets.UserFieldUpdatedAt),
	}
}

func (s *service) dropCached(ctx context.Context, discordID string) {
	if err := s.cache.Invalidate(ctx, cache.UserRole, discordID); err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("user-role cache invalidation failed: %v", err))
	}
}
