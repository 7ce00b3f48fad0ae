package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/stake-plus/guildmod/src/api/webserver"
	sharedconfig "github.com/stake-plus/guildmod/src/config"
)

var (
	subjectFlag = flag.String("sub", "admin", "Token subject, used as the rate-limit key")
	guildsFlag  = flag.String("guilds", "", "Comma-separated guild IDs the token may read (empty = all)")
	ttlFlag     = flag.Duration("ttl", 24*time.Hour, "Token lifetime")
)

func main() {
	flag.Parse()
	sharedconfig.LoadEnv()

	secret := sharedconfig.GetSetting("jwt_secret", "JWT_SECRET", "")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	var guilds []string
	for _, g := range strings.Split(*guildsFlag, ",") {
		if g = strings.TrimSpace(g); g != "" {
			guilds = append(guilds, g)
		}
	}

	tok, err := webserver.IssueToken([]byte(secret), *subjectFlag, guilds, *ttlFlag)
	if err != nil {
		log.Fatalf("sign: %v", err)
	}
	fmt.Println(tok)
}
