package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Sunrisies/merge-mp4/internal/config"
	"github.com/Sunrisies/merge-mp4/internal/domain"
	"github.com/Sunrisies/merge-mp4/internal/engine"
	"github.com/Sunrisies/merge-mp4/internal/ffmpeg"
	"github.com/Sunrisies/merge-mp4/internal/format"
	"github.com/Sunrisies/merge-mp4/internal/task"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误：%v\n", err)
		os.Exit(1)
	}
}

type cliDeps struct {
	eng *engine.Engine
	cfg *config.Store
	log *logrus.Logger
}

func newRootCmd() *cobra.Command {
	var verbose bool
	deps := &cliDeps{}

	root := &cobra.Command{
		Use:           "merge-mp4",
		Short:         "扫描、合并与管理 MP4 文件",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log := logrus.New()
			log.SetOutput(os.Stderr)
			log.SetLevel(logrus.WarnLevel)
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			deps.cfg = cfg
			deps.log = log
			deps.eng = engine.New(cfg, log, 0)
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出调试日志与编码器原始输出")

	root.AddCommand(newScanCmd(deps))
	root.AddCommand(newMergeCmd(deps))
	root.AddCommand(newRmCmd(deps))
	root.AddCommand(newDoctorCmd(deps))
	root.AddCommand(newConfigCmd(deps))
	return root
}

func newScanCmd(deps *cliDeps) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "scan <目录>",
		Short: "扫描目录下的 MP4 文件并读取头信息",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if workers > 0 {
				deps.eng = engine.New(deps.cfg, deps.log, workers)
			}

			h, err := deps.eng.Scan(dir)
			if err != nil {
				return err
			}
			terminal := consumeEvents(deps, h)

			if terminal.Type == domain.EventError {
				emitFiles(terminal.Files)
				return fmt.Errorf("%s：%s", terminal.Code, terminal.Message)
			}

			// 扫描成功后记住输入目录，下次作为默认起点。
			if abs, aerr := filepath.Abs(dir); aerr == nil {
				if cerr := deps.eng.SetLastInputDirectory(abs); cerr != nil {
					deps.log.WithError(cerr).Warn("记录输入目录失败")
				}
			}

			emitFiles(terminal.Files)
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "解析并发数（默认取 CPU 核数）")
	return cmd
}

func newMergeCmd(deps *cliDeps) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "merge <输入...>",
		Short: "按给定顺序无重编码合并 MP4 文件",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, err := resolveOutput(deps, out)
			if err != nil {
				return err
			}

			h, err := deps.eng.Merge(args, output)
			if err != nil {
				return err
			}
			terminal := consumeEvents(deps, h)

			if terminal.Type == domain.EventError {
				return fmt.Errorf("%s：%s", terminal.Code, terminal.Message)
			}
			fmt.Fprintln(os.Stdout, terminal.Message)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "输出文件路径（未指定时落在配置的 output_directory）")
	return cmd
}

// resolveOutput 决定合并产物路径：优先 --out，否则配置目录 + 时间戳文件名。
func resolveOutput(deps *cliDeps, out string) (string, error) {
	if out != "" {
		return out, nil
	}
	c := deps.eng.Config()
	if c.OutputDirectory == nil || *c.OutputDirectory == "" {
		return "", domain.NewError(domain.ErrCodePath,
			"未指定 --out，且配置中没有 output_directory（可用 merge-mp4 config --output-dir 设置）")
	}
	name := fmt.Sprintf("merged-%s.mp4", time.Now().Format("20060102-150405"))
	return filepath.Join(*c.OutputDirectory, name), nil
}

func newRmCmd(deps *cliDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <文件...>",
		Short: "删除文件（逐条尝试，聚合失败）",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := deps.eng.BatchDelete(args)
			for _, f := range res.Failures {
				fmt.Fprintf(os.Stderr, "%s: %s\n", f.Path, f.Reason)
			}
			fmt.Fprintf(os.Stdout, "已删除 %d 个，失败 %d 个\n", res.Succeeded, len(res.Failures))
			if len(res.Failures) > 0 {
				return fmt.Errorf("%d 个文件删除失败", len(res.Failures))
			}
			return nil
		},
	}
}

func newDoctorCmd(deps *cliDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "检查运行环境",
		RunE: func(cmd *cobra.Command, args []string) error {
			ok := true

			if path, err := exec.LookPath(ffmpeg.EncoderName); err != nil {
				fmt.Fprintf(os.Stdout, "[x] ffmpeg：未找到，请安装并加入 PATH\n")
				ok = false
			} else {
				fmt.Fprintf(os.Stdout, "[v] ffmpeg：%s\n", path)
			}

			if p, err := config.FilePath(); err != nil {
				fmt.Fprintf(os.Stdout, "[x] 配置目录：不可用（%v）\n", err)
				ok = false
			} else {
				fmt.Fprintf(os.Stdout, "[v] 配置文件：%s\n", p)
			}

			if !ok {
				return fmt.Errorf("环境检查未通过")
			}
			fmt.Fprintln(os.Stdout, "环境就绪")
			return nil
		},
	}
}

func newConfigCmd(deps *cliDeps) *cobra.Command {
	var outputDir, inputDir, queryDir string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "查看或修改配置",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("output-dir") {
				if err := deps.eng.SetOutputDirectory(outputDir); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("input-dir") {
				if err := deps.eng.SetLastInputDirectory(inputDir); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("query-dir") {
				if err := deps.eng.SetLastQueryDirectory(queryDir); err != nil {
					return err
				}
			}

			b, err := json.MarshalIndent(deps.eng.Config(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, string(b))
			return nil
		},
	}
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "设置合并输出目录")
	cmd.Flags().StringVar(&inputDir, "input-dir", "", "设置上次输入目录")
	cmd.Flags().StringVar(&queryDir, "query-dir", "", "设置上次查询目录")
	return cmd
}

// consumeEvents 消费任务事件直到终态；Ctrl+C 触发协作式取消。
// 返回终态事件（通道关闭前的最后一条）。
func consumeEvents(deps *cliDeps, h *task.Handle) domain.Event {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	go func() {
		if _, ok := <-sigCh; ok {
			fmt.Fprintln(os.Stderr, "收到中断，正在取消...")
			deps.eng.Cancel(h)
		}
	}()

	w, interactive := pickProgressWriter()
	r := newEventRenderer(w, interactive, deps.log)

	var terminal domain.Event
	for e := range h.Events() {
		r.render(e)
		if e.Terminal() {
			terminal = e
		}
	}
	return terminal
}

// emitFiles 维持 stdout 契约：非 TTY 时 stdout 只输出一个 JSON 数组，
// 交互终端则输出人读列表。
func emitFiles(files []domain.FileRecord) {
	if files == nil {
		files = []domain.FileRecord{}
	}
	if !isTTY(os.Stdout) {
		enc := json.NewEncoder(os.Stdout)
		_ = enc.Encode(files)
		return
	}
	for _, f := range files {
		fmt.Fprintf(os.Stdout, "%s  %s  %s  %s  %dx%d\n",
			f.Name, format.Bytes(f.Size), f.Duration, f.Codec, f.Width, f.Height)
	}
	fmt.Fprintf(os.Stdout, "共 %d 个文件\n", len(files))
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度只在交互终端启用；默认走 stderr，不污染 stdout 的 JSON 输出。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}
