package app

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// allowedOrigins 合并 WEB_ORIGIN 与逗号分隔的 CORS_ORIGINS，去空、去尾斜杠、去重
func allowedOrigins(primary, extra string) []string {
	seen := map[string]bool{}
	var out []string
	for _, o := range append([]string{primary}, strings.Split(extra, ",")...) {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
	}
	return out
}

// useCORS allows the web front end to call the API with its session cookie.
func useCORS(r *gin.Engine, primary, extra string) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(primary, extra),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           6 * time.Hour,
	}))
}
