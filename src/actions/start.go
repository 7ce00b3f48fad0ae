package actions

import (
	"context"
	"fmt"
	"log"

	"github.com/stake-plus/guildmod/src/actions/antispam"
	"github.com/stake-plus/guildmod/src/actions/core"
	"github.com/stake-plus/guildmod/src/actions/members"
	"github.com/stake-plus/guildmod/src/actions/modlog"
	"github.com/stake-plus/guildmod/src/actions/settings"
	sharedconfig "github.com/stake-plus/guildmod/src/config"
	"gorm.io/gorm"
)

// StartAll wires up enabled action modules on one Discord session and starts
// the manager. It returns a nil manager when every module is disabled.
func StartAll(ctx context.Context, db *gorm.DB, svc *Services) (*Manager, error) {
	base := sharedconfig.LoadBase(db)
	session, err := core.NewSession(base.Token)
	if err != nil {
		return nil, fmt.Errorf("actions: %w", err)
	}

	mgr := NewManager()

	antispamCfg := sharedconfig.LoadAntiSpamConfig(db)
	if antispamCfg.Enabled {
		if err := mgr.Add(antispam.NewModule(&antispamCfg, session, svc.Store, svc.Ledger)); err != nil {
			return nil, fmt.Errorf("actions: add antispam module: %w", err)
		}
	} else {
		log.Printf("actions: antispam module disabled via configuration")
	}

	settingsCfg := sharedconfig.LoadSettingsConfig(db)
	if settingsCfg.Enabled {
		if err := mgr.Add(settings.NewModule(&settingsCfg, session, svc.Store)); err != nil {
			return nil, fmt.Errorf("actions: add settings module: %w", err)
		}
	} else {
		log.Printf("actions: settings module disabled via configuration")
	}

	modlogCfg := sharedconfig.LoadModLogConfig(db)
	if modlogCfg.Enabled {
		if err := mgr.Add(modlog.NewModule(&modlogCfg, session, svc.Store, svc.Ledger)); err != nil {
			return nil, fmt.Errorf("actions: add modlog module: %w", err)
		}
	} else {
		log.Printf("actions: modlog module disabled via configuration")
	}

	membersCfg := sharedconfig.LoadMembersConfig(db)
	if membersCfg.Enabled {
		if err := mgr.Add(members.NewModule(&membersCfg, session, svc.Store)); err != nil {
			return nil, fmt.Errorf("actions: add members module: %w", err)
		}
	} else {
		log.Printf("actions: members module disabled via configuration")
	}

	if len(mgr.Names()) == 0 {
		log.Printf("actions: every module is disabled")
		return nil, nil
	}

	// modules attach their handlers in Start, so the gateway goes last
	if err := mgr.Add(core.NewGateway(session)); err != nil {
		return nil, fmt.Errorf("actions: add gateway: %w", err)
	}

	if err := mgr.Start(ctx); err != nil {
		return nil, err
	}

	return mgr, nil
}
