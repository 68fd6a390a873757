package main

import (
	"fmt"
	"log"
	"os"

	"wisefido-command/internal/config"
)

// 目的地/路由配置检查工具
// 读取与服务相同的环境变量，检查目的地和路由配置的一致性后退出
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	fmt.Println("=== Command destinations ===")
	fmt.Printf("%-20s %-10s %-10s %-10s %-30s\n", "id", "transport", "encoder", "extractor", "script")
	for _, dest := range cfg.Command.Destinations {
		fmt.Printf("%-20s %-10s %-10s %-10s %-30s\n",
			dest.ID, dest.Transport, orDefault(dest.Encoder), orDefault(dest.Extractor), dest.Script)
	}

	fmt.Println()
	fmt.Println("=== Router ===")
	fmt.Printf("strategy: %s\n", cfg.Command.Router.Strategy)

	problems := checkRouter(cfg)
	problems = append(problems, checkDestinations(cfg)...)

	fmt.Println()
	if len(problems) == 0 {
		fmt.Println("OK: configuration is consistent")
		return
	}

	for _, p := range problems {
		fmt.Printf("PROBLEM: %s\n", p)
	}
	os.Exit(1)
}

// checkRouter 检查路由配置与目的地集合的一致性
func checkRouter(cfg *config.Config) []string {
	var problems []string

	ids := make(map[string]bool)
	for _, dest := range cfg.Command.Destinations {
		ids[dest.ID] = true
	}

	router := &cfg.Command.Router
	switch router.Strategy {
	case "single":
		if len(cfg.Command.Destinations) != 1 {
			problems = append(problems, fmt.Sprintf(
				"single strategy requires exactly one destination, found %d", len(cfg.Command.Destinations)))
		}
	case "device-type-mapping":
		for deviceType, id := range router.Mappings {
			if !ids[id] {
				problems = append(problems, fmt.Sprintf(
					"mapping for device type %q points to unknown destination %q", deviceType, id))
			}
		}
		if router.DefaultDestinationID != "" && !ids[router.DefaultDestinationID] {
			problems = append(problems, fmt.Sprintf(
				"default destination %q does not exist", router.DefaultDestinationID))
		}
	case "scripted":
		if router.Script == "" {
			problems = append(problems, "scripted strategy requires a script reference")
		}
	case "noop":
		if len(cfg.Command.Destinations) > 0 {
			problems = append(problems, "noop strategy drops all commands but destinations are configured")
		}
	}

	return problems
}

// checkDestinations 检查各目的地的传输通道前置条件
func checkDestinations(cfg *config.Config) []string {
	var problems []string

	for _, dest := range cfg.Command.Destinations {
		switch dest.Transport {
		case "sms":
			if cfg.Command.SMSGateway.BaseURL == "" && dest.Settings["gateway_url"] == "" {
				problems = append(problems, fmt.Sprintf(
					"sms destination %q has no gateway URL (SMS_GATEWAY_URL or settings.gateway_url)", dest.ID))
			}
			if dest.Encoder != "" && dest.Encoder != "text" {
				problems = append(problems, fmt.Sprintf(
					"sms destination %q uses encoder %q, only text is supported", dest.ID, dest.Encoder))
			}
		case "mqtt", "webhook":
			if dest.Encoder == "text" {
				problems = append(problems, fmt.Sprintf(
					"%s destination %q uses the text encoder, only json or scripted is supported", dest.Transport, dest.ID))
			}
		}

		if (dest.Encoder == "scripted" || dest.Extractor == "scripted") && dest.Script == "" {
			problems = append(problems, fmt.Sprintf(
				"destination %q uses scripted components but has no script reference", dest.ID))
		}
	}

	return problems
}

func orDefault(value string) string {
	if value == "" {
		return "default"
	}
	return value
}
