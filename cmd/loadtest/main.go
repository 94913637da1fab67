package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	posv1 "github.com/vladislavdragonenkov/pos/proto/pos/v1"
)

const idempotencyHeader = "idempotency-key"

type loadMode string

const (
	modeSell          loadMode = "sell"
	modeSellPay       loadMode = "sell-pay"
	modeSellPayCancel loadMode = "sell-pay-cancel"
)

var errEmptySaleID = errors.New("create response returned empty sale id")

// saleClient — подмножество posv1.SaleServiceClient, нужное сценариям.
type saleClient interface {
	CreateSale(ctx context.Context, in *posv1.CreateSaleRequest, opts ...grpc.CallOption) (*posv1.CreateSaleResponse, error)
	ConfirmPayment(ctx context.Context, in *posv1.ConfirmPaymentRequest, opts ...grpc.CallOption) (*posv1.ConfirmPaymentResponse, error)
	CancelSale(ctx context.Context, in *posv1.CancelSaleRequest, opts ...grpc.CallOption) (*posv1.CancelSaleResponse, error)
}

type config struct {
	addr        string
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	connections int
	timeout     time.Duration
	mode        loadMode
	cancelRate  int
	products    []string
	quantity    int
	family      bool
	special     bool
	outputPath  string
}

func parseConfig(args []string) (config, error) {
	var (
		cfg         config
		modeValue   string
		productsRaw string
	)

	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.addr, "addr", "localhost:50051", "gRPC target address")
	fs.IntVar(&cfg.total, "total", 400, "total scenarios to execute in count mode; in duration mode only used when explicitly set")
	fs.DurationVar(&cfg.duration, "duration", 0, "optional time-based run duration (e.g. 10m)")
	fs.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent workers")
	fs.IntVar(&cfg.connections, "connections", 20, "number of gRPC client connections")
	fs.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "per-RPC timeout")
	fs.StringVar(&modeValue, "mode", string(modeSell), "load mode: sell | sell-pay | sell-pay-cancel")
	fs.IntVar(&cfg.cancelRate, "cancel-rate", 0, "cancel probability in percent for sell-pay mode (0..100)")
	fs.StringVar(&productsRaw, "products", "", "comma-separated product ids; every sale takes one unit of each")
	fs.IntVar(&cfg.quantity, "quantity", 1, "quantity of every product in the cart")
	fs.BoolVar(&cfg.family, "family", false, "apply family-tier prices")
	fs.BoolVar(&cfg.special, "special", false, "apply special-tier prices")
	fs.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	mode, err := parseMode(modeValue)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode

	for _, id := range strings.Split(productsRaw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			cfg.products = append(cfg.products, id)
		}
	}

	return cfg, cfg.validate()
}

func (c config) validate() error {
	var problems []error
	check := func(bad bool, msg string) {
		if bad {
			problems = append(problems, errors.New(msg))
		}
	}
	check(c.duration < 0, "duration must be >= 0")
	check(c.duration == 0 && c.total <= 0, "total must be > 0 when duration is not set")
	check(c.duration > 0 && c.totalSet && c.total <= 0, "total must be > 0 when explicitly set with duration")
	check(c.concurrency <= 0, "concurrency must be > 0")
	check(c.connections <= 0, "connections must be > 0")
	check(c.timeout <= 0, "timeout must be > 0")
	check(c.cancelRate < 0 || c.cancelRate > 100, "cancel-rate must be between 0 and 100")
	check(len(c.products) == 0, "products is required")
	check(c.quantity <= 0, "quantity must be > 0")
	return errors.Join(problems...)
}

// admits решает, запускать ли сценарий с номером i в момент now.
// Без -duration работает счётчик -total; с -duration — дедлайн и, если задан, -total.
func (c config) admits(i int, startedAt, now time.Time) bool {
	if c.duration <= 0 {
		return i < c.total
	}
	if c.totalSet && i >= c.total {
		return false
	}
	return now.Sub(startedAt) < c.duration
}

func parseMode(value string) (loadMode, error) {
	switch mode := loadMode(strings.TrimSpace(value)); mode {
	case modeSell, modeSellPay, modeSellPayCancel:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	result, err := run(cfg, os.Stdout)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "load test failed: %v\n", err)
		os.Exit(1)
	}
	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}

// run открывает соединения, прогоняет сценарии и печатает отчёт.
func run(cfg config, out io.Writer) (report, error) {
	conns := make([]*grpc.ClientConn, 0, cfg.connections)
	defer func() {
		for _, conn := range conns {
			_ = conn.Close()
		}
	}()

	clients := make([]saleClient, 0, cfg.connections)
	for i := 0; i < cfg.connections; i++ {
		conn, err := grpc.NewClient(cfg.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return report{}, fmt.Errorf("create grpc client connection: %w", err)
		}
		conns = append(conns, conn)
		clients = append(clients, posv1.NewSaleServiceClient(conn))
	}

	result := runLoad(clients, cfg)
	printReport(out, result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			return result, fmt.Errorf("write report: %w", err)
		}
	}
	return result, nil
}

func runLoad(clients []saleClient, cfg config) report {
	startedAt := time.Now()
	runID := uuid.NewString()
	col := newCollector()

	// Go блокируется, пока занято concurrency слотов.
	var g errgroup.Group
	g.SetLimit(cfg.concurrency)
	for i := 0; cfg.admits(i, startedAt, time.Now()); i++ {
		cli := clients[i%len(clients)]
		g.Go(func() error {
			// Ошибка сценария уже учтена в collector; прогон продолжается.
			_ = runScenario(cli, cfg, i, runID, col)
			return nil
		})
	}
	_ = g.Wait()

	return col.buildReport(startedAt, time.Since(startedAt))
}

func buildCart(cfg config) *posv1.CreateSaleRequest {
	req := &posv1.CreateSaleRequest{Family: cfg.family, Special: cfg.special}
	for _, id := range cfg.products {
		req.Items = append(req.Items, &posv1.CartItem{ProductId: id, Quantity: int32(cfg.quantity)}) //nolint:gosec // validated to be a small positive flag value.
	}
	return req
}

func runScenario(client saleClient, cfg config, index int, runID string, col *collector) (err error) {
	start := time.Now()
	defer func() {
		col.record(scenarioMethod, time.Since(start), grpcCode(err))
	}()

	created, err := callRPC(col, "CreateSale", cfg.timeout, fmt.Sprintf("lt-sell-%s-%d", runID, index),
		func(ctx context.Context) (*posv1.CreateSaleResponse, error) {
			return client.CreateSale(ctx, buildCart(cfg))
		})
	if err != nil {
		return err
	}
	if created.Sale == nil || created.Sale.GetId() == "" {
		return status.Error(codes.Internal, errEmptySaleID.Error())
	}
	saleID := created.Sale.GetId()

	if cfg.mode == modeSell {
		col.addRevenue(created.Sale.TotalCents)
		return nil
	}

	_, err = callRPC(col, "ConfirmPayment", cfg.timeout, fmt.Sprintf("lt-pay-%s-%d", runID, index),
		func(ctx context.Context) (*posv1.ConfirmPaymentResponse, error) {
			return client.ConfirmPayment(ctx, &posv1.ConfirmPaymentRequest{SaleId: saleID})
		})
	if err != nil {
		return err
	}

	if cfg.mode == modeSellPayCancel || (cfg.mode == modeSellPay && shouldCancelScenario(index, cfg.cancelRate)) {
		_, err = callRPC(col, "CancelSale", cfg.timeout, fmt.Sprintf("lt-cancel-%s-%d", runID, index),
			func(ctx context.Context) (*posv1.CancelSaleResponse, error) {
				return client.CancelSale(ctx, &posv1.CancelSaleRequest{SaleId: saleID, Reason: "load-cancel"})
			})
		return err
	}

	col.addRevenue(created.Sale.TotalCents)
	return nil
}

// callRPC выполняет вызов с таймаутом и ключом идемпотентности и учитывает его в статистике.
func callRPC[T any](col *collector, method string, timeout time.Duration, key string, call func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, idempotencyHeader, key)

	resp, err := call(ctx)
	col.record(method, time.Since(start), grpcCode(err))
	return resp, err
}

func grpcCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	return status.Code(err)
}

func shouldCancelScenario(index, cancelRate int) bool {
	if cancelRate <= 0 {
		return false
	}
	if cancelRate >= 100 {
		return true
	}
	return index%100 < cancelRate
}
