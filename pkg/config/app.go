package config

var AppVersion = "DEVELOPMENT"

const (
	AppName  = "serterm"
	LogFile  = "serterm.log"
	CfgFile  = "config.toml"
	LogsDir  = "logs"
	UserDir  = "user"
	CfgEnv   = "SERTERM_CFG"
	AppEnv   = "SERTERM_APP"
	ThemeEnv = "SERTERM_THEME"
)
