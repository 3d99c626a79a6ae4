// controllers/srv.go
package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"Gin_postgres_redis_lend_tool/app"
	"Gin_postgres_redis_lend_tool/db"
	"Gin_postgres_redis_lend_tool/lending"
	"Gin_postgres_redis_lend_tool/models"
	"Gin_postgres_redis_lend_tool/session"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
)

// AppSessions is the business-session store the handlers write to.
type AppSessions interface {
	Create(ctx context.Context, id, userID, email string) error
	Delete(ctx context.Context, id string) error
	TTL() time.Duration
}

type Srv struct {
	WA           *webauthn.WebAuthn
	Store        db.Store
	Ceremonies   *session.CeremonyStore
	AppSess      AppSessions
	Lending      *lending.Service
	Log          *slog.Logger
	WebOrigin    string
	UploadFolder string
}

func GetSrv(a *app.App) *Srv {
	return &Srv{
		WA:           a.WA,
		Store:        a.Store,
		Ceremonies:   a.Ceremonies(),
		AppSess:      a.AppSessions(),
		Lending:      a.Lending,
		Log:          a.Log,
		WebOrigin:    a.Config.WebOrigin,
		UploadFolder: a.Config.UploadFolder,
	}
}

// --- helpers ---

// 统一设置业务会话 Cookie；maxAge < 0 表示删除
func (s *Srv) setAppCookie(w http.ResponseWriter, sessionID string, maxAge time.Duration) {
	secure := strings.HasPrefix(s.WebOrigin, "https://")
	ck := &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
		MaxAge:   int(maxAge / time.Second),
	}
	if maxAge < 0 {
		ck.MaxAge = -1
	}
	http.SetCookie(w, ck)
}

// 登录成功：创建会话 + 记录登录
func (s *Srv) issueSession(ctx context.Context, w http.ResponseWriter, u *models.User) error {
	if err := s.Store.TouchUserLogin(ctx, u.ID); err != nil {
		// 不阻塞
		s.Log.WarnContext(ctx, "touch user login", "user_id", u.ID, "err", err)
	}
	id := uuid.NewString()
	if err := s.AppSess.Create(ctx, id, u.ID, u.Email); err != nil {
		return err
	}
	s.setAppCookie(w, id, s.AppSess.TTL())
	return nil
}

// WebAuthn: DB user -> waUser
type waUser struct {
	user  models.User
	creds []webauthn.Credential
}

func (u *waUser) WebAuthnID() []byte                         { id, _ := uuid.Parse(u.user.ID); return id[:] }
func (u *waUser) WebAuthnName() string                       { return u.user.Email }
func (u *waUser) WebAuthnDisplayName() string                { return u.user.Name }
func (u *waUser) WebAuthnCredentials() []webauthn.Credential { return u.creds }

func toWaCred(c models.Credential) webauthn.Credential {
	return webauthn.Credential{
		ID:              c.CredentialID,
		PublicKey:       c.PublicKey,
		AttestationType: c.AttestationType,
		Authenticator: webauthn.Authenticator{
			AAGUID:       c.AAGUID,
			SignCount:    c.SignCount,
			CloneWarning: c.CloneWarning,
		},
		Flags: webauthn.CredentialFlags{
			BackupEligible: c.BackupEligible,
			BackupState:    c.BackupState,
		},
	}
}

func (s *Srv) toWAUser(ctx context.Context, u *models.User) (*waUser, error) {
	cs, err := s.Store.LoadUserCredentials(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	ws := make([]webauthn.Credential, 0, len(cs))
	for _, c := range cs {
		ws = append(ws, toWaCred(c))
	}
	return &waUser{user: *u, creds: ws}, nil
}

func (s *Srv) loadWAUserByID(ctx context.Context, id string) (*waUser, error) {
	u, err := s.Store.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toWAUser(ctx, u)
}

func (s *Srv) loadWAUserByEmail(ctx context.Context, email string) (*waUser, error) {
	u, err := s.Store.FindUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return s.toWAUser(ctx, u)
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }
