package core

// Taiwan national holidays, keyed by ISO date.
var holidays = map[string]string{
	"2025-01-01": "元旦",
	"2025-01-27": "小年夜",
	"2025-01-28": "除夕",
	"2025-01-29": "春節",
	"2025-01-30": "初二",
	"2025-01-31": "初三",
	"2025-02-28": "和平紀念日",
	"2025-04-04": "兒童節/清明節",
	"2025-05-01": "勞動節",
	"2025-05-31": "端午節",
	"2025-10-06": "中秋節",
	"2025-10-10": "國慶日",

	"2026-01-01": "元旦",
	"2026-02-16": "小年夜",
	"2026-02-17": "除夕",
	"2026-02-18": "春節",
	"2026-02-28": "和平紀念日",
	"2026-04-04": "兒童節",
	"2026-04-05": "清明節",
	"2026-05-01": "勞動節",
	"2026-06-19": "端午節",
	"2026-09-25": "中秋節",
	"2026-10-10": "國慶日",
}
