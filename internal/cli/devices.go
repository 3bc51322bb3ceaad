package cli

import (
	"context"
	"fmt"

	"fleet-admin-console/config"
	"fleet-admin-console/internal/model"
	"fleet-admin-console/internal/view"
)

func settlePolicy(cfg *config.Config) view.SettlePolicy {
	s := cfg.Console.DeviceSettle
	return view.SettlePolicy{InitialDelay: s.InitialDelay, Interval: s.Interval, MaxAttempts: s.MaxAttempts}
}

func (e *env) devices(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: devices needs a verb: list, create, delete", errUsage)
	}
	verb, args := args[0], args[1:]
	n := e.notices()

	switch verb {
	case "list":
		v := view.NewDevicesView(e.api, n, view.Preconfirmed, settlePolicy(e.cfg))
		defer v.Close()
		if err := v.Load(ctx); err != nil {
			return err
		}
		w := e.table()
		fmt.Fprintln(w, "IMEI\tSTATUS\tINFO\tNOTE\tREGISTERED")
		for _, d := range v.Snapshot().Items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.IMEI, dash(d.Status), dash(d.Info), dash(d.Note), d.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()

	case "create":
		fs := e.flags("devices create")
		imei := fs.String("imei", "", "hardware IMEI")
		info := fs.String("info", "", "free-form info")
		note := fs.String("note", "", "free-form note")
		wait := fs.Bool("wait", false, "wait until the device shows up")
		if err := fs.Parse(args); err != nil {
			return err
		}
		v := view.NewDevicesView(e.api, n, view.Preconfirmed, settlePolicy(e.cfg))
		defer v.Close()
		op, err := v.Create(ctx, model.CreateDeviceRequest{IMEI: *imei, Info: *info, Note: *note})
		if err != nil {
			if form := v.Form(); form.Error != "" {
				fmt.Fprintln(e.errOut, form.Error)
				return errReported
			}
			return e.report(n, err)
		}
		return e.settle(ctx, n, op, *wait)

	case "delete":
		fs := e.flags("devices delete")
		yes := fs.Bool("yes", false, "do not ask for confirmation")
		wait := fs.Bool("wait", false, "wait until the device is gone")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := wantArgs(fs.Args(), 1, "devices delete [-yes] [-wait] <imei>"); err != nil {
			return err
		}
		v := view.NewDevicesView(e.api, n, e.confirmer(*yes), settlePolicy(e.cfg))
		defer v.Close()
		op, err := v.Delete(ctx, fs.Arg(0))
		if err != nil {
			return e.report(n, err)
		}
		return e.settle(ctx, n, op, *wait)

	default:
		return fmt.Errorf("%w: unknown devices verb %q", errUsage, verb)
	}
}

// settle prints the queued notice and, with wait, blocks until op is
// observed in the device list or polling gives up.
func (e *env) settle(ctx context.Context, n *view.Notifier, op *view.PendingOp, wait bool) error {
	if err := e.report(n, nil); err != nil || !wait || op.State() == view.OpSettled {
		return err
	}
	select {
	case <-op.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := e.report(n, nil); err != nil {
		return err
	}
	if op.State() == view.OpUnsettled {
		return errReported
	}
	return nil
}
