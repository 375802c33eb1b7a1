package signin

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jcmexdev/portal-flows/internal/confirmation"
)

const (
	MsgLoginFailed        = "Login failed"
	MsgOTPEmailRequired   = "Please enter your email to receive OTP"
	MsgOTPThrottled       = "Too many OTP requests, please wait"
	MsgOTPSendFailed      = "Failed to send OTP"
	MsgOTPEmailMissing    = "Email missing. Please enter your email and resend OTP."
	MsgOTPVerifyFailed    = "Invalid or expired OTP"
	MsgTwoFactorFailed    = "Verification failed"
	MsgTwoFactorCancelled = "Two-factor verification cancelled"
)

// Remember says what to do with the remembered email after a login.
type Remember string

const (
	RememberKeep  Remember = ""
	RememberStore Remember = "store"
	RememberClear Remember = "clear"
)

// Outcome is the result of one sign-in step as the page renders it.
type Outcome struct {
	Session       *Session                   `json:"session,omitempty"`
	Challenge     *Challenge                 `json:"challenge,omitempty"`
	FieldErrors   FieldErrors                `json:"fieldErrors,omitempty"`
	Notification  *confirmation.Notification `json:"notification,omitempty"`
	OTPDialogOpen bool                       `json:"otpDialogOpen"`
	Remember      Remember                   `json:"-"`
}

type Options struct {
	// OTPPerMinute and OTPBurst throttle OTP sends per email address.
	OTPPerMinute float64
	OTPBurst     int
	// LimiterIdle is how long an unused per-email limiter is kept.
	LimiterIdle time.Duration
}

type emailLimiter struct {
	limiter *rate.Limiter
	last    time.Time
}

// Flow runs sign-in steps against an Authenticator.
type Flow struct {
	auth Authenticator
	opts Options

	mu       sync.Mutex
	limiters map[string]*emailLimiter
	now      func() time.Time
}

func NewFlow(auth Authenticator, opts Options) *Flow {
	if opts.OTPPerMinute <= 0 {
		opts.OTPPerMinute = 1
	}
	if opts.OTPBurst <= 0 {
		opts.OTPBurst = 3
	}
	if opts.LimiterIdle <= 0 {
		opts.LimiterIdle = 30 * time.Minute
	}
	return &Flow{
		auth:     auth,
		opts:     opts,
		limiters: make(map[string]*emailLimiter),
		now:      time.Now,
	}
}

// Login validates the form and signs in with the trimmed password.
func (f *Flow) Login(ctx context.Context, form Form) Outcome {
	if errs := form.Validate(); errs != nil {
		return Outcome{FieldErrors: errs}
	}

	res, err := f.auth.Login(ctx, form.Credentials())
	if err != nil {
		slog.WarnContext(ctx, "login failed", "email", form.Email, "error", err)
		return failed(userMessage(err, MsgLoginFailed))
	}

	out := Outcome{Session: res.Session, Challenge: res.Challenge, Remember: RememberClear}
	if form.RememberMe {
		out.Remember = RememberStore
	}
	if res.Challenge != nil {
		slog.InfoContext(ctx, "two-factor required", "email", form.Email, "challenge_id", res.Challenge.ID)
	}
	return out
}

func (f *Flow) VerifyTwoFactor(ctx context.Context, challengeID, code string) Outcome {
	s, err := f.auth.VerifyTwoFactor(ctx, challengeID, strings.TrimSpace(code))
	if err != nil {
		slog.WarnContext(ctx, "two-factor verification failed", "challenge_id", challengeID, "error", err)
		return failed(userMessage(err, MsgTwoFactorFailed))
	}
	return Outcome{Session: &s}
}

func (f *Flow) CancelTwoFactor(ctx context.Context, challengeID string) Outcome {
	if err := f.auth.CancelTwoFactor(ctx, challengeID); err != nil {
		slog.WarnContext(ctx, "two-factor cancel failed", "challenge_id", challengeID, "error", err)
	}
	return Outcome{Notification: &confirmation.Notification{Level: confirmation.LevelInfo, Message: MsgTwoFactorCancelled}}
}

// SendOTP starts a passwordless login for email.
func (f *Flow) SendOTP(ctx context.Context, email string) Outcome {
	email = strings.TrimSpace(email)
	if email == "" {
		return failed(MsgOTPEmailRequired)
	}
	if msg := validateEmail(email); msg != "" {
		return Outcome{FieldErrors: FieldErrors{"email": msg}}
	}
	if !f.limiterFor(email).Allow() {
		slog.InfoContext(ctx, "otp send throttled", "email", email)
		return failed(MsgOTPThrottled)
	}
	if err := f.auth.SendLoginOTP(ctx, email); err != nil {
		slog.WarnContext(ctx, "otp send failed", "email", email, "error", err)
		return failed(userMessage(err, MsgOTPSendFailed))
	}
	return Outcome{OTPDialogOpen: true}
}

// VerifyOTP completes a passwordless login. The dialog stays open on failure.
func (f *Flow) VerifyOTP(ctx context.Context, email, code string) Outcome {
	email = strings.TrimSpace(email)
	if email == "" {
		out := failed(MsgOTPEmailMissing)
		out.OTPDialogOpen = true
		return out
	}
	s, err := f.auth.VerifyLoginOTP(ctx, email, strings.TrimSpace(code))
	if err != nil {
		slog.WarnContext(ctx, "otp verification failed", "email", email, "error", err)
		out := failed(userMessage(err, MsgOTPVerifyFailed))
		out.OTPDialogOpen = true
		return out
	}
	return Outcome{Session: &s}
}

func (f *Flow) limiterFor(email string) *rate.Limiter {
	key := strings.ToLower(email)
	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()

	for k, l := range f.limiters {
		if now.Sub(l.last) > f.opts.LimiterIdle {
			delete(f.limiters, k)
		}
	}
	l, ok := f.limiters[key]
	if !ok {
		l = &emailLimiter{limiter: rate.NewLimiter(rate.Limit(f.opts.OTPPerMinute/60), f.opts.OTPBurst)}
		f.limiters[key] = l
	}
	l.last = now
	return l.limiter
}

func failed(msg string) Outcome {
	return Outcome{Notification: &confirmation.Notification{Level: confirmation.LevelError, Message: msg}}
}
