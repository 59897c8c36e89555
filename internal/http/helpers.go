package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"sitebook/internal/backup"
	"sitebook/internal/core"
	"sitebook/internal/ledger"
	"sitebook/internal/services"
	"sitebook/internal/settings"
)

// sanitizeInput removes control characters except tab and newline, then trims.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// attachment builds a Content-Disposition value that survives non-ASCII
// file names: a plain fallback plus the RFC 5987 UTF-8 form.
func attachment(fallback, name string) string {
	return `attachment; filename="` + fallback + `"; filename*=UTF-8''` + url.PathEscape(name)
}

// userMessages maps refusals to the text shown to the operator.
var userMessages = []struct {
	err error
	msg string
}{
	{ledger.ErrSearchActive, "搜尋中無法儲存，請先清除搜尋關鍵字"},
	{ledger.ErrNothingMarked, "請先勾選要刪除的資料"},
	{ledger.ErrInvalidSelection, "請選擇工地、類別與年份"},
	{ledger.ErrStoreInconsistent, "寫入失敗，資料表可能不完整，請立即檢查並從備份還原"},
	{services.ErrRenamePartial, "紀錄已更新，但設定儲存失敗，請重新套用設定變更"},
	{services.ErrRestorePartial, "紀錄已還原，但設定儲存失敗，請再還原一次"},
	{services.ErrStoreUnavailable, "無法連線至資料來源，請稍後再試"},
	{settings.ErrEmptyName, "名稱不可空白"},
	{settings.ErrProjectExists, "工地名稱已存在"},
	{settings.ErrUnknownProject, "找不到此工地"},
	{settings.ErrLastProject, "至少需保留一個工地"},
	{settings.ErrCategoryExists, "類別代碼已存在"},
	{settings.ErrUnknownCategory, "找不到此類別"},
	{settings.ErrSuggestionExists, "選項已存在"},
	{settings.ErrUnknownSuggestion, "找不到此選項"},
	{settings.ErrInvalidSuggestions, "選項種類錯誤"},
	{core.ErrInvalidDate, "日期格式錯誤"},
	{core.ErrEmptyProject, "請選擇工地"},
	{core.ErrEmptyCategory, "請選擇類別"},
	{core.ErrEmptyItem, "請填寫項目"},
	{core.ErrNegativeAmount, "數量與單價不可為負數"},
	{core.ErrMissingInvoice, "發票需填寫發票號碼"},
	{core.ErrInvalidCategory, "類別種類錯誤"},
	{core.ErrInvalidAmount, "金額格式錯誤"},
	{backup.ErrInvalidArchive, "備份檔格式錯誤"},
}

// errorMessage returns the operator-facing text for err. Row prefixes added
// by the form parser are kept.
func errorMessage(err error) string {
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			if prefix, _, ok := strings.Cut(err.Error(), ": "); ok && strings.HasPrefix(prefix, "第 ") {
				return prefix + ": " + m.msg
			}
			return m.msg
		}
	}
	return "發生錯誤，請稍後再試"
}

// errorStatus maps a service error to an HTTP status.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, ledger.ErrSearchActive),
		errors.Is(err, settings.ErrProjectExists),
		errors.Is(err, settings.ErrCategoryExists),
		errors.Is(err, settings.ErrSuggestionExists):
		return http.StatusConflict
	case errors.Is(err, settings.ErrUnknownProject),
		errors.Is(err, settings.ErrUnknownCategory),
		errors.Is(err, settings.ErrUnknownSuggestion):
		return http.StatusNotFound
	case services.IsUserError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
