package main

import (
	"flag"
	"fmt"
	"log"

	"ashare/internal/config"
	"ashare/internal/database"
)

func main() {
	var (
		configPath = flag.String("config", "configs/config.yaml", "配置文件路径")
		up         = flag.Bool("up", false, "运行数据库迁移")
		down       = flag.Bool("down", false, "回滚数据库迁移")
		version    = flag.Bool("version", false, "显示当前迁移版本")
		force      = flag.Int("force", -1, "强制设置迁移版本（用于修复脏状态）")
		path       = flag.String("path", "internal/database/migrations", "迁移文件目录")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("加载配置文件失败: %v", err)
	}

	db, err := database.NewConnection(&database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpen:         cfg.Database.MaxOpen,
		MaxIdle:         cfg.Database.MaxIdle,
		Timeout:         cfg.Database.Timeout,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		log.Fatalf("连接数据库失败: %v", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db, *path)
	if err != nil {
		log.Fatalf("创建迁移器失败: %v", err)
	}

	switch {
	case *up:
		if err := migrator.Up(); err != nil {
			log.Fatalf("迁移失败: %v", err)
		}
		fmt.Println("迁移完成")
	case *down:
		if err := migrator.Down(); err != nil {
			log.Fatalf("回滚失败: %v", err)
		}
		fmt.Println("回滚完成")
	case *version:
		v, err := migrator.Version()
		if err != nil {
			log.Fatalf("获取版本失败: %v", err)
		}
		fmt.Printf("当前迁移版本: %d\n", v)
	case *force >= 0:
		if err := migrator.Force(*force); err != nil {
			log.Fatalf("强制设置版本失败: %v", err)
		}
		fmt.Printf("版本已强制设置为: %d\n", *force)
	default:
		flag.Usage()
	}
}
