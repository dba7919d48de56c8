// Package probe implements the end-to-end orchestration that wires the
// parsed Script through the Packet Builder, Transport Driver, Response
// Reader/Code Evaluator, and Output Renderer into a single probe run,
// per spec.md §2 and §7.
package probe

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/CaptianFluffy100/net-sentinel/internal/builder"
	"github.com/CaptianFluffy100/net-sentinel/internal/evalcode"
	"github.com/CaptianFluffy100/net-sentinel/internal/probeerr"
	"github.com/CaptianFluffy100/net-sentinel/internal/render"
	"github.com/CaptianFluffy100/net-sentinel/internal/script"
	"github.com/CaptianFluffy100/net-sentinel/internal/transport"
	"github.com/CaptianFluffy100/net-sentinel/internal/value"
	"github.com/CaptianFluffy100/net-sentinel/internal/wire"
)

// Result is the tuple spec.md §6 specifies a probe hands back to its
// caller.
type Result struct {
	Success bool
	Elapsed time.Duration
	Raw     []byte
	Env     map[string]value.Value
	Label   string
	Err     error
	ErrKind string
}

// Run executes scr against target to completion: it assembles
// exchanges, drives the transport, evaluates CODE blocks, and renders
// the success or error output block. It never returns a Go error for a
// failed probe — failure is reported through Result.Success/Result.Err,
// matching spec.md §7's "no error is retried inside the core" contract.
// Run only returns a non-nil error for a misuse it cannot recover from
// (an empty script).
// trace, when non-nil, is called once per block executed naming the
// block kind, and again with a hex dump of each binary request, each
// binary response, and each HTTP response body; the original Rust implementation did this
// unconditionally to stdout in debug builds, here it's opt-in and
// routed through the caller's own Logger instead.
func Run(ctx context.Context, scr *script.Script, target transport.Target, trace ...func(string)) (*Result, error) {
	if scr == nil || len(scr.Blocks) == 0 {
		return nil, fmt.Errorf("probe: empty script")
	}
	var tr func(string)
	if len(trace) > 0 {
		tr = trace[0]
	}
	start := time.Now()
	env := value.NewEnvironment()

	probeErr := populatePlaceholders(ctx, env, target)

	var bin *transport.BinaryDriver
	var httpDrv *transport.HTTPDriver
	switch target.Protocol {
	case transport.HTTP, transport.HTTPS:
		httpDrv = transport.NewHTTPDriver(target)
	default:
		bin = transport.NewBinaryDriver(target)
	}

	var pending []script.Block
	var lastRaw []byte

	if probeErr == nil {
	runBlocks:
		for _, blk := range scr.Blocks {
			if tr != nil {
				tr(blockKindName(blk.Kind))
			}
			switch blk.Kind {
			case script.BlockPacket, script.BlockHTTPRequest:
				pending = append(pending, blk)
			case script.BlockResponse:
				raw, err := runExchange(ctx, pending, blk, bin, httpDrv, env, tr)
				pending = nil
				if err != nil {
					probeErr = err
					break runBlocks
				}
				lastRaw = raw
			case script.BlockCode:
				if err := evalcode.ExecuteCode(blk.Code, env); err != nil {
					probeErr = err
					break runBlocks
				}
			case script.BlockConnectionClose:
				if bin != nil {
					if err := bin.Reset(ctx); err != nil {
						probeErr = err
						break runBlocks
					}
				}
			case script.BlockOutputSuccess, script.BlockOutputError:
				// terminal; selected below once the outcome is known
			}
		}
	}

	if bin != nil {
		bin.Close()
	}

	success := probeErr == nil
	outBlock := selectOutput(scr, success)
	errText := ""
	if probeErr != nil {
		errText = probeErr.Error()
	}
	label := render.Render(outBlock, env, errText)

	return &Result{
		Success: success,
		Elapsed: time.Since(start),
		Raw:     lastRaw,
		Env:     env.Snapshot(),
		Label:   label,
		Err:     probeErr,
		ErrKind: errKind(probeErr),
	}, nil
}

func blockKindName(k script.BlockKind) string {
	switch k {
	case script.BlockPacket:
		return "PACKET"
	case script.BlockHTTPRequest:
		return "HTTP_REQUEST"
	case script.BlockResponse:
		return "RESPONSE"
	case script.BlockCode:
		return "CODE"
	case script.BlockOutputSuccess:
		return "OUTPUT_SUCCESS"
	case script.BlockOutputError:
		return "OUTPUT_ERROR"
	case script.BlockConnectionClose:
		return "CONNECTION_CLOSE"
	default:
		return "UNKNOWN"
	}
}

func errKind(err error) string {
	switch err.(type) {
	case nil:
		return ""
	case *probeerr.SyntaxError:
		return "syntax"
	case *probeerr.NetworkError:
		return "network"
	case *probeerr.ValidationError:
		return "validation"
	case *probeerr.ParseError:
		return "parse"
	default:
		return "unknown"
	}
}

func selectOutput(scr *script.Script, success bool) *script.OutputBlock {
	want := script.BlockOutputError
	if success {
		want = script.BlockOutputSuccess
	}
	for _, blk := range scr.Blocks {
		if blk.Kind == want {
			return blk.Output
		}
	}
	return nil
}

func runExchange(ctx context.Context, pending []script.Block, respBlk script.Block, bin *transport.BinaryDriver, httpDrv *transport.HTTPDriver, env *value.Environment, tr func(string)) ([]byte, error) {
	if httpDrv != nil {
		return runHTTPExchange(ctx, pending, respBlk, httpDrv, env, tr)
	}
	return runBinaryExchange(ctx, pending, respBlk, bin, env, tr)
}

func runBinaryExchange(ctx context.Context, pending []script.Block, respBlk script.Block, bin *transport.BinaryDriver, env *value.Environment, tr func(string)) ([]byte, error) {
	reqs := make([][]byte, 0, len(pending))
	for _, blk := range pending {
		if blk.Kind != script.BlockPacket {
			return nil, probeerr.NewParseError("line %d: HTTP request block used with a non-HTTP transport", blk.Line)
		}
		b, err := builder.Build(blk.Packet, env)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, b)
	}
	if tr != nil {
		for _, b := range reqs {
			tr("request bytes:\n" + wire.HexDump(b))
		}
	}
	raw, err := bin.SendExchange(ctx, reqs)
	if err != nil {
		return nil, err
	}
	if tr != nil {
		tr("response bytes:\n" + wire.HexDump(raw))
	}
	cur := &evalcode.BinaryCursor{Data: raw}
	if err := evalcode.ExecuteBinaryResponse(respBlk.Response, cur, env); err != nil {
		return nil, err
	}
	return raw, nil
}

func runHTTPExchange(ctx context.Context, pending []script.Block, respBlk script.Block, httpDrv *transport.HTTPDriver, env *value.Environment, tr func(string)) ([]byte, error) {
	var res *evalcode.HTTPResult
	for _, blk := range pending {
		if blk.Kind != script.BlockHTTPRequest {
			return nil, probeerr.NewParseError("line %d: binary PACKET block used with an HTTP transport", blk.Line)
		}
		r, err := httpDrv.Do(ctx, blk.HTTP, env)
		if err != nil {
			return nil, err
		}
		res = r
	}
	if res == nil {
		return nil, probeerr.NewParseError("line %d: RESPONSE block has no preceding HTTP request", respBlk.Line)
	}
	if tr != nil {
		tr("response body:\n" + wire.HexDump(res.Body))
	}
	if err := evalcode.ExecuteHTTPResponse(respBlk.Response, res, env); err != nil {
		return nil, err
	}
	return res.Body, nil
}

// populatePlaceholders resolves and binds the reserved identifiers
// spec.md §3 lists as injected into the environment before execution:
// HOST, IP, IP_LEN, IP_LEN_HEX, PORT, plus the HOST_LEN synonym of
// IP_LEN (spec.md's original_source supplement).
func populatePlaceholders(ctx context.Context, env *value.Environment, target transport.Target) error {
	env.Set("HOST", value.String(target.Host))
	env.Set("PORT", value.Uint(uint64(target.Port)))

	ip := target.Host
	if parsed := net.ParseIP(target.Host); parsed == nil {
		addrs, err := net.DefaultResolver.LookupIPAddr(ctx, target.Host)
		if err != nil {
			return probeerr.NewNetworkError("dns", false, err)
		}
		if len(addrs) == 0 {
			return probeerr.NewNetworkError("dns", false, fmt.Errorf("no addresses for %q", target.Host))
		}
		ip = addrs[0].IP.String()
	}
	env.Set("IP", value.String(ip))
	env.Set("IP_LEN", value.Uint(uint64(len(ip))))
	env.Set("HOST_LEN", value.Uint(uint64(len(ip))))
	env.Set("IP_LEN_HEX", value.String(strconv.FormatInt(int64(len(ip)), 16)))
	return nil
}
