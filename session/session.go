// Package session composes the transport, frame, protocol, ramload,
// and codec packages into the program/verify/read-out operations a
// caller actually wants: decode input files into one memory image,
// apply requested transforms, erase, upload, verify, read out, and
// optionally jump to the freshly programmed application.
package session

import (
	"context"
	"time"

	"github.com/tocurd/go-bsl/bslerr"
	"github.com/tocurd/go-bsl/codec"
	"github.com/tocurd/go-bsl/frame"
	"github.com/tocurd/go-bsl/internal/logging"
	"github.com/tocurd/go-bsl/memimage"
	"github.com/tocurd/go-bsl/protocol"
	"github.com/tocurd/go-bsl/ramload"
	"github.com/tocurd/go-bsl/transport"
)

// Session drives one target through a full program/verify/read-out
// run built from a Config.
type Session struct {
	cfg             Config
	tr              transport.Transport
	engine          *protocol.Engine
	loader          *ramload.Loader
	image           *memimage.Image
	memCheckResults map[uint32]bool
}

// MemCheckResult reports the outcome of the last Run's memCheck pass
// for addr: exists is true if the target acknowledged the address,
// checked is false if addr was never probed (not in WithMemCheck, or
// Run never reached the memCheck step).
func (s *Session) MemCheckResult(addr uint32) (exists, checked bool) {
	v, ok := s.memCheckResults[addr]
	return v, ok
}

// New builds a Session from the given options. The Transport is built
// and opened later, by Run.
func New(opts ...Option) *Session {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Session{cfg: cfg, image: memimage.NewDefault()}
}

func (s *Session) report(phase string, done, total int, start time.Time) {
	if s.cfg.ProgressCallback == nil {
		return
	}
	s.cfg.ProgressCallback(Progress{
		Phase:       phase,
		BytesDone:   done,
		BytesTotal:  total,
		ElapsedTime: time.Since(start),
	})
}

// Run executes the full sequence described in the orchestrator design:
// open, sync, identify, load inputs, transform, erase, program,
// verify, read out, and jump — skipping any step the Config didn't
// request. ctx is checked between steps; it does not interrupt a
// transaction already in flight.
func (s *Session) Run(ctx context.Context) error {
	start := time.Now()

	tr, err := openTransport(s.cfg)
	if err != nil {
		return err
	}
	s.tr = tr
	if err := s.tr.Open(); err != nil {
		return err
	}
	defer s.tr.Close()

	if s.cfg.ResetMethod == ResetMethodDTR || s.cfg.ResetMethod == ResetMethodRTS || s.cfg.ResetMethod == ResetMethodGPIO {
		if err := s.pulseReset(); err != nil {
			return err
		}
	}

	echo := frame.EchoNone
	if s.cfg.UARTModeOverride != nil {
		echo = *s.cfg.UARTModeOverride
	}
	mode := frame.ModeUART
	if s.cfg.Iface == InterfaceSPI {
		mode = frame.ModeSPI
	}
	f := frame.New(s.tr, mode, echo)
	s.engine = protocol.New(f)
	s.engine.Retries = s.cfg.Retries
	s.loader = ramload.New(s.engine)

	s.report("entering", 0, 0, start)
	if err := s.engine.Synchronize(s.cfg.SyncAttempts); err != nil {
		return err
	}
	if err := checkCtx(ctx); err != nil {
		return err
	}

	if s.cfg.Iface == InterfaceUART && s.cfg.UARTModeOverride == nil {
		detected, err := s.engine.DetectUARTMode(0x55, 3)
		if err != nil {
			return err
		}
		f.Echo = detected
	}

	if err := s.engine.Identify(); err != nil {
		return err
	}
	if err := checkCtx(ctx); err != nil {
		return err
	}

	if len(s.cfg.MemCheckAddrs) > 0 {
		s.memCheckResults = make(map[uint32]bool, len(s.cfg.MemCheckAddrs))
		for _, addr := range s.cfg.MemCheckAddrs {
			exists, err := s.engine.MemCheck(addr)
			if err != nil {
				return err
			}
			s.memCheckResults[addr] = exists
			logging.Log().Debugf("session: memCheck 0x%08X exists=%v", addr, exists)
		}
		if err := checkCtx(ctx); err != nil {
			return err
		}
	}

	for _, in := range s.cfg.Inputs {
		if err := s.decodeInput(in); err != nil {
			return err
		}
	}

	for _, t := range s.cfg.Transforms {
		if err := s.applyTransform(t); err != nil {
			return err
		}
	}
	if err := checkCtx(ctx); err != nil {
		return err
	}

	if s.cfg.MassErase || len(s.cfg.EraseSectors) > 0 {
		if err := s.loader.EnsureResident(); err != nil {
			return err
		}
	}
	if s.cfg.MassErase {
		logging.Log().Debug("session: mass erase")
		if err := s.engine.MassErase(); err != nil {
			return err
		}
	} else if len(s.cfg.EraseSectors) > 0 {
		if err := s.engine.EraseSectors(s.cfg.EraseSectors); err != nil {
			return err
		}
	}
	if err := checkCtx(ctx); err != nil {
		return err
	}

	if err := s.upload(ctx, start); err != nil {
		return err
	}

	if s.cfg.Verify {
		s.report("verifying", 0, 0, start)
		if err := s.verify(); err != nil {
			return err
		}
	}

	if s.cfg.Output != nil {
		if err := s.readOut(*s.cfg.Output); err != nil {
			return err
		}
	}

	if s.cfg.JumpAfter != nil {
		if err := s.engine.Go(*s.cfg.JumpAfter); err != nil {
			return err
		}
	}

	s.report("complete", 0, 0, start)
	return nil
}

func checkCtx(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (s *Session) pulseReset() error {
	if err := s.tr.SetResetLine(true); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	if err := s.tr.SetResetLine(false); err != nil {
		return err
	}
	time.Sleep(50 * time.Millisecond)
	return nil
}

func (s *Session) decodeInput(in InputFile) error {
	data, err := readFile(in.Path)
	if err != nil {
		return err
	}
	switch in.Format {
	case FormatSRecord:
		return codec.DecodeSRecord(s.image, data)
	case FormatIntelHex:
		return codec.DecodeIntelHex(s.image, data)
	case FormatASCIITable:
		return codec.DecodeASCIITable(s.image, data)
	case FormatRawBinary:
		return codec.DecodeRawBinary(s.image, data, in.BaseAddr)
	default:
		return &bslerr.UnknownInterface{Name: "input file format"}
	}
}

func (s *Session) applyTransform(t Transform) error {
	switch t.Kind {
	case TransformFill:
		return s.image.Fill(t.Lo, t.Hi, t.Value)
	case TransformClip:
		return s.image.Clip(t.Lo, t.Hi)
	case TransformCut:
		return s.image.Cut(t.Lo, t.Hi)
	case TransformCopy:
		return s.image.Copy(t.Lo, t.Hi, t.DstLo)
	case TransformMove:
		return s.image.Move(t.Lo, t.Hi, t.DstLo)
	default:
		return &bslerr.UnknownInterface{Name: "transform kind"}
	}
}

func (s *Session) upload(ctx context.Context, start time.Time) error {
	first, last, count := s.image.FullExtent()
	if count == 0 {
		return nil
	}
	blocks, err := protocol.PlanWriteBlocks(s.image, first, last, protocol.MaxWriteLen)
	if err != nil {
		return err
	}
	done := 0
	for _, b := range blocks {
		if err := checkCtx(ctx); err != nil {
			return err
		}
		if protocol.RequiresRAMRoutine(s.engine.Family) {
			if err := s.loader.EnsureResident(); err != nil {
				return err
			}
		}
		if err := s.engine.Write(uint32(b.Addr), b.Data); err != nil {
			return err
		}
		done += len(b.Data)
		s.report("programming", done, count, start)
	}
	return nil
}

func (s *Session) verify() error {
	first, last, count := s.image.FullExtent()
	if count == 0 {
		return nil
	}
	chunks := protocol.PlanReadChunks(first, last, protocol.MaxReadLen)
	for _, chunk := range chunks {
		got, err := s.engine.Read(uint32(chunk.Addr), len(chunk.Data))
		if err != nil {
			return err
		}
		for i, gv := range got {
			addr := chunk.Addr + i
			if !s.image.Defined(addr) {
				continue
			}
			wv, _ := s.image.Get(addr)
			if wv != gv {
				return &bslerr.VerifyMismatch{Address: uint32(addr), Expected: wv, Got: gv}
			}
		}
	}
	return nil
}

func (s *Session) readOut(out OutputFile) error {
	scratch := memimage.New(s.image.Len())
	chunks := protocol.PlanReadChunks(out.Lo, out.Hi, protocol.MaxReadLen)
	for _, chunk := range chunks {
		data, err := s.engine.Read(uint32(chunk.Addr), len(chunk.Data))
		if err != nil {
			return err
		}
		for i, v := range data {
			if err := scratch.Set(chunk.Addr+i, v); err != nil {
				return err
			}
		}
	}
	var encoded []byte
	var err error
	switch out.Format {
	case FormatSRecord:
		encoded, err = codec.EncodeSRecord(scratch)
	case FormatIntelHex:
		encoded, err = codec.EncodeIntelHex(scratch)
	case FormatASCIITable:
		encoded, err = codec.EncodeASCIITable(scratch)
	case FormatRawBinary:
		encoded, err = codec.EncodeRawBinary(scratch)
	default:
		return &bslerr.UnknownInterface{Name: "output file format"}
	}
	if err != nil {
		return err
	}
	return writeFile(out.Path, encoded)
}
