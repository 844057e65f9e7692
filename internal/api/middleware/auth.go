package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"

	"tradebot/pkg/crypto"
)

// APIKeyAuth проверяет заголовок X-API-Key против bcrypt-хэша ключа.
//
// Хэш передаётся при сборке роутера и обычно приходит из конфигурации
// (API_KEY_HASH). Пустой хэш отключает проверку: локальное развёртывание
// на одного пользователя работает без аутентификации.
func APIKeyAuth(keyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keyHash == "" {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("X-API-Key")
			if key == "" || !crypto.CheckTokenMatch(key, keyHash) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"invalid or missing API key"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// debugUsername и debugPassword защищают debug/pprof endpoints.
// Загружаются из DEBUG_USERNAME и DEBUG_PASSWORD.
var (
	debugUsername = os.Getenv("DEBUG_USERNAME")
	debugPassword = os.Getenv("DEBUG_PASSWORD")
)

// DebugAuth закрывает debug endpoints HTTP Basic аутентификацией.
// Без настроенных credentials доступ разрешён только вне production.
func DebugAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if debugUsername == "" || debugPassword == "" {
			if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "Debug endpoints disabled. Set DEBUG_USERNAME and DEBUG_PASSWORD.", http.StatusForbidden)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="Debug endpoints"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		// Constant-time сравнение против timing attacks
		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(debugUsername)) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(debugPassword)) == 1

		if !userMatch || !passMatch {
			w.Header().Set("WWW-Authenticate", `Basic realm="Debug endpoints"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
