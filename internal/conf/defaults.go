package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig registers default values for every key.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("reference.path", "data/bird_list.csv")

	v.SetDefault("catalog.allowuncatalogued", true)

	v.SetDefault("store.backend", BackendSQLite)
	v.SetDefault("store.sheets.spreadsheetid", "")
	v.SetDefault("store.sheets.sheetname", "Sheet1")
	v.SetDefault("store.sheets.credentialsfile", "credentials.json")
	v.SetDefault("store.sqlite.path", "data/birddex.db")
	v.SetDefault("store.mysql.dsn", "")

	v.SetDefault("identify.apikey", "")
	v.SetDefault("identify.model", "gemini-2.5-flash")
	v.SetDefault("identify.concurrency", 4)
	v.SetDefault("identify.timeout", 60*time.Second)

	v.SetDefault("progress.xpperlevel", 100)
	v.SetDefault("progress.achievementbonus", 50)
	v.SetDefault("progress.xp", map[string]int{
		"common":    10,
		"rare":      30,
		"epic":      60,
		"legendary": 100,
	})
	v.SetDefault("progress.rarity", map[string][]string{
		"rare":      {"물총새", "파랑새", "원앙", "황조롱이", "후투티", "꾀꼬리"},
		"epic":      {"저어새", "두루미", "황새", "수리부엉이", "흰꼬리수리"},
		"legendary": {"크낙새", "호사비오리", "넓적부리도요", "검은머리물떼새"},
	})

	v.SetDefault("sprite.outputdir", "assets/sprites")
	v.SetDefault("sprite.width", 48)
	v.SetDefault("sprite.scale", 4)
	v.SetDefault("sprite.thumbsize", 1000)
	v.SetDefault("sprite.ratelimit", 10.0)
	v.SetDefault("sprite.language", "ko")

	v.SetDefault("webserver.host", "127.0.0.1")
	v.SetDefault("webserver.port", "8080")
	v.SetDefault("webserver.bodylimit", "20M")
	v.SetDefault("webserver.allowedorigins", []string{"*"})

	v.SetDefault("notification.urls", []string{})

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic", "birddex/sightings")
	v.SetDefault("mqtt.clientid", "birddex")

	v.SetDefault("sentry.dsn", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "info")
	v.SetDefault("logging.file.enabled", false)
	v.SetDefault("logging.file.path", "logs/birddex.log")
	v.SetDefault("logging.file.level", "debug")
}
