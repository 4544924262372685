package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/annel0/voxel-core/internal/config"
	"github.com/annel0/voxel-core/internal/logging"
	"github.com/annel0/voxel-core/internal/serialization"
	"github.com/spf13/pflag"
)

// command - подкоманда voxtool
type command struct {
	name  string
	usage string
	run   func(env *env, args []string) error
}

// env - общее окружение подкоманд
type env struct {
	cfg *config.Config
	out io.Writer
}

var commands = []command{
	{"info", "info <file>                      формат, ассеты и хеш файла", runInfo},
	{"preview-get", "preview-get <file> <out.png>     извлечь превью", runPreviewGet},
	{"preview-set", "preview-set <file> <in.png>      заменить превью", runPreviewSet},
	{"duplicate", "duplicate <src> <dst>            копия файла байт в байт", runDuplicate},
	{"generate", "generate [flags] <out.3zh>       сгенерировать ландшафт", runGenerate},
	{"bake", "bake <file>...                   запечь формы через кеш", runBake},
	{"edit-demo", "edit-demo [flags] <in> <out>     применить пример транзакции", runEditDemo},
	{"serve-metrics", "serve-metrics                    HTTP /metrics Prometheus", runServeMetrics},
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	var (
		configPath string
		logLevel   string
	)
	flagSet := pflag.NewFlagSet("voxtool", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&configPath, "config", "", "путь к YAML конфигурации (по умолчанию $VOXEL_CONFIG)")
	flagSet.StringVar(&logLevel, "log-level", "", "уровень логов консоли: trace, debug, info, warn, error")
	flagSet.Usage = func() { printUsage(out, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}
	if logLevel != "" {
		cfg.Log.ConsoleLevel = logLevel
	}
	consoleLevel := logging.ParseLevel(cfg.Log.ConsoleLevel)
	logging.Configure(cfg.Log.Dir, consoleLevel, logging.ParseLevel(cfg.Log.FileLevel))
	logging.GetLoggerManager().SetConsoleLevel(consoleLevel)
	if err := logging.InitDefaultLogger("voxtool"); err != nil {
		log.Printf("⚠️ Логирование в файл недоступно: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	serialization.SetMaxGridCells(cfg.Codec.MaxGridCells)

	rest := flagSet.Args()
	if len(rest) == 0 {
		printUsage(out, flagSet)
		return fmt.Errorf("не указана команда")
	}

	for _, c := range commands {
		if c.name == rest[0] {
			logging.GetToolLogger().Debug("Команда %s %v", c.name, rest[1:])
			return c.run(&env{cfg: cfg, out: out}, rest[1:])
		}
	}
	printUsage(out, flagSet)
	return fmt.Errorf("неизвестная команда: %s", rest[0])
}

func printUsage(out io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintln(out, "Использование: voxtool [--config file] [--log-level level] <команда> [аргументы]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Команды:")
	for _, c := range commands {
		fmt.Fprintf(out, "  %s\n", c.usage)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Флаги:")
	fmt.Fprint(out, flagSet.FlagUsages())
}

// expectArgs проверяет количество позиционных аргументов
func expectArgs(args []string, n int, usage string) error {
	if len(args) != n {
		return fmt.Errorf("использование: voxtool %s", usage)
	}
	return nil
}
