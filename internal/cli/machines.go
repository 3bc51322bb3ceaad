package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"fleet-admin-console/internal/view"
)

func (e *env) machines(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: machines needs a verb: list, create, rename, delete, history, push-status", errUsage)
	}
	verb, args := args[0], args[1:]
	n := e.notices()

	switch verb {
	case "list":
		v := view.NewMachinesView(e.api, e.api, n, view.Preconfirmed)
		if err := v.Load(ctx); err != nil {
			return err
		}
		w := e.table()
		fmt.Fprintln(w, "ID\tNAME\tRPM\tCYCLES\tREMAINING\tLAST STATUS")
		for _, m := range v.Snapshot().Items {
			if m.Status == nil {
				fmt.Fprintf(w, "%d\t%s\t-\t-\t-\tnever\n", m.ID, m.Name)
				continue
			}
			st := m.Status
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\t%s\n", m.ID, m.Name, st.MainSpeedRPM, st.MachineCycles, dash(st.RemainingTime), st.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()

	case "create":
		if len(args) == 0 {
			return fmt.Errorf("%w: expected machines create <name>", errUsage)
		}
		v := view.NewMachinesView(e.api, e.api, n, view.Preconfirmed)
		v.OpenCreate()
		return e.report(n, v.Submit(ctx, strings.Join(args, " ")))

	case "rename":
		if len(args) < 2 {
			return fmt.Errorf("%w: expected machines rename <id> <name>", errUsage)
		}
		id, err := parseID(args[0], "machine")
		if err != nil {
			return err
		}
		v := view.NewMachinesView(e.api, e.api, n, view.Preconfirmed)
		if err := v.Load(ctx); err != nil {
			return err
		}
		if err := v.OpenEdit(id); err != nil {
			return err
		}
		return e.report(n, v.Submit(ctx, strings.Join(args[1:], " ")))

	case "delete":
		fs := e.flags("machines delete")
		yes := fs.Bool("yes", false, "do not ask for confirmation")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := wantArgs(fs.Args(), 1, "machines delete [-yes] <id>"); err != nil {
			return err
		}
		id, err := parseID(fs.Arg(0), "machine")
		if err != nil {
			return err
		}
		v := view.NewMachinesView(e.api, e.api, n, e.confirmer(*yes))
		return e.report(n, v.Delete(ctx, id))

	case "history":
		if err := wantArgs(args, 1, "machines history <id>"); err != nil {
			return err
		}
		h, err := e.openHistory(ctx, n, args[0])
		if err != nil {
			return err
		}
		m := h.Machine()
		fmt.Fprintf(e.out, "%s (id %d)\n", m.Name, m.ID)
		w := e.table()
		fmt.Fprintln(w, "ID\tRECORDED\tIMEI\tRPM\tCYCLES\tFAN\tPUMP IN/OUT\tPROCESSING\tREMAINING")
		for _, st := range h.Snapshot().Items {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\t%s/%s\t%s\t%s\n",
				st.ID, st.CreatedAt.Format("2006-01-02 15:04:05"), dash(st.IMEI), st.MainSpeedRPM, st.MachineCycles,
				onOff(st.FanOn), onOff(st.PumpInOn), onOff(st.PumpOutOn), dash(st.ProcessingTime), dash(st.RemainingTime))
		}
		return w.Flush()

	case "push-status":
		return e.pushStatus(ctx, n, args)

	default:
		return fmt.Errorf("%w: unknown machines verb %q", errUsage, verb)
	}
}

func (e *env) openHistory(ctx context.Context, n *view.Notifier, rawID string) (*view.HistoryView, error) {
	id, err := parseID(rawID, "machine")
	if err != nil {
		return nil, err
	}
	machines := view.NewMachinesView(e.api, e.api, n, view.Preconfirmed)
	if err := machines.Load(ctx); err != nil {
		return nil, err
	}
	h, err := machines.OpenHistory(id)
	if err != nil {
		return nil, err
	}
	return h, h.Open(ctx)
}

// pushStatus appends a status record. Flags that are not given keep the
// value of the machine's current status.
func (e *env) pushStatus(ctx context.Context, n *view.Notifier, args []string) error {
	fs := e.flags("machines push-status")
	imei := fs.String("imei", "", "device IMEI")
	rpm := fs.Int("rpm", 0, "main speed in rpm")
	cycles := fs.Int("cycles", 0, "machine cycles")
	minutes := fs.Int("min", 0, "minutes value")
	fan := fs.Bool("fan", false, "fan on")
	powderMotor := fs.Bool("powder-motor", false, "powder motor on")
	powderOn := fs.Bool("powder-on", false, "powder on")
	powderOff := fs.Bool("powder-off", false, "powder off")
	pumpIn := fs.Bool("pump-in", false, "pump in on")
	pumpOut := fs.Bool("pump-out", false, "pump out on")
	runTest := fs.Bool("run-test", false, "run test set")
	testWeight := fs.Float64("test-weight", 0, "run test set weight in g")
	processing := fs.String("processing", "", "processing time, usually HH:MM[:SS]")
	remaining := fs.String("remaining", "", "remaining time, usually HH:MM[:SS]")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := wantArgs(fs.Args(), 1, "machines push-status [flags] <id>"); err != nil {
		return err
	}

	h, err := e.openHistory(ctx, n, fs.Arg(0))
	if err != nil {
		return err
	}
	draft := h.Draft()
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "imei":
			draft.IMEI = *imei
		case "rpm":
			draft.MainSpeedRPM = *rpm
		case "cycles":
			draft.MachineCycles = *cycles
		case "min":
			draft.Min = *minutes
		case "fan":
			draft.FanOn = *fan
		case "powder-motor":
			draft.PowderMotorOn = *powderMotor
		case "powder-on":
			draft.PowderOn = *powderOn
		case "powder-off":
			draft.PowderOff = *powderOff
		case "pump-in":
			draft.PumpInOn = *pumpIn
		case "pump-out":
			draft.PumpOutOn = *pumpOut
		case "run-test":
			draft.RunTestSet = *runTest
		case "test-weight":
			w := *testWeight
			draft.RunTestSetG = &w
		case "processing":
			draft.ProcessingTime = *processing
		case "remaining":
			draft.RemainingTime = *remaining
		}
	})
	for _, hint := range view.TimeHints(draft) {
		fmt.Fprintln(e.errOut, hint)
	}
	h.SetDraft(draft)
	return e.report(n, h.Submit(ctx))
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

