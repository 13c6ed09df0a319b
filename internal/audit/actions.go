package audit

// Event actions recorded by the auth core.
const (
	ActionRegister           = "register"
	ActionLoginSuccess       = "login_success"
	ActionLoginFailure       = "login_failure"
	ActionLoginTwoFactor     = "login_two_factor"
	ActionLogout             = "logout"
	ActionTokenRefresh       = "token_refresh"
	ActionPasswordChange     = "password_change"
	ActionSessionRevoke      = "session_revoke"
	ActionTwoFactorEnable    = "two_factor_enable"
	ActionTwoFactorDisable   = "two_factor_disable"
	ActionRecoveryCodeViewed = "recovery_codes_viewed"
)
