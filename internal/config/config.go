package config

import (
    "os"
    "strconv"
    "time"

    goyaml "gopkg.in/yaml.v3"
)

type Config struct {
    BotToken        string `yaml:"bot_token"`
    DBPath          string `yaml:"db_path"`
    ChatID          int64  `yaml:"chat_id"`
    Timezone        string `yaml:"timezone"`
    SessionTTLHours int    `yaml:"session_ttl_hours"`
}

func MustLoad(path string) (*Config, error) {
    cfg := &Config{}
    b, err := os.ReadFile(path)
    if err != nil {
        return nil, err
    }
    if err := goyaml.Unmarshal(b, cfg); err != nil {
        return nil, err
    }
    if v := os.Getenv("BOT_TOKEN"); v != "" { cfg.BotToken = v }
    if v := os.Getenv("DB_PATH"); v != "" { cfg.DBPath = v }
    if v := os.Getenv("CHAT_ID"); v != "" {
        if id, err := strconv.ParseInt(v, 10, 64); err == nil { cfg.ChatID = id }
    }
    if v := os.Getenv("TZ"); v != "" {
        cfg.Timezone = v; _ = os.Setenv("TZ", v)
    } else if cfg.Timezone != "" {
        _ = os.Setenv("TZ", cfg.Timezone)
    }
    if cfg.Timezone != "" {
        if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
            time.Local = loc
        }
    }
    if cfg.SessionTTLHours <= 0 { cfg.SessionTTLHours = 6 }
    return cfg, nil
}
