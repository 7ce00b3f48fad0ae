// Minimal end-to-end smoke test for the guildmod admin API.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/stake-plus/guildmod/src/api/webserver"
)

var (
	baseURL = getenv("API_URL", "http://localhost:8080")
	secret  = os.Getenv("JWT_SECRET")
	guildID = getenv("GUILD_ID", "100000000000000001")
)

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	token, err := webserver.IssueToken([]byte(secret), "smoke-"+uuid.NewString(), []string{guildID}, 5*time.Minute)
	if err != nil {
		log.Fatalf("sign: %v", err)
	}

	doReq("/healthz", "", nil, http.StatusOK)
	doReq("/v1/guilds/"+guildID+"/config", "", nil, http.StatusUnauthorized)

	var cfg struct {
		Stored bool `json:"stored"`
		Config struct {
			MaxMention int `json:"maxMention"`
		} `json:"config"`
	}
	doReq("/v1/guilds/"+guildID+"/config", token, &cfg, http.StatusOK)

	var cases struct {
		Cases []struct {
			CaseID  uint64 `json:"caseId"`
			Pending bool   `json:"pending"`
		} `json:"cases"`
	}
	doReq("/v1/guilds/"+guildID+"/cases?limit=10", token, &cases, http.StatusOK)

	fmt.Printf("config stored=%v max_mention=%d, %d recent cases\n", cfg.Stored, cfg.Config.MaxMention, len(cases.Cases))
	fmt.Println("✓ all endpoints passed")
}

func doReq(path, token string, out any, want int) {
	req, _ := http.NewRequest(http.MethodGet, baseURL+path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("GET %s: %v", path, err)
	}
	defer res.Body.Close()
	if res.StatusCode != want {
		log.Fatalf("GET %s: want %d got %d", path, want, res.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			log.Fatalf("GET %s decode: %v", path, err)
		}
	}
}
