package cli

import (
	"context"
	"fmt"

	"fleet-admin-console/internal/view"
)

func (e *env) permissions(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: permissions needs a verb: list, grant, revoke", errUsage)
	}
	verb, args := args[0], args[1:]
	n := e.notices()

	switch verb {
	case "list":
		v := view.NewPermissionsView(e.api, n, view.Preconfirmed)
		if err := v.Load(ctx); err != nil {
			return err
		}
		w := e.table()
		fmt.Fprintln(w, "ID\tUSER\tMACHINE\tGRANTED")
		for _, p := range v.Bindings().Items {
			fmt.Fprintf(w, "%d\t%s (%d)\t%s (%d)\t%s\n", p.ID, p.Username, p.UserID, p.MachineName, p.MachineID, p.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()

	case "grant":
		if err := wantArgs(args, 2, "permissions grant <user-id> <machine-id>"); err != nil {
			return err
		}
		userID, machineID, err := parsePair(args)
		if err != nil {
			return err
		}
		v := view.NewPermissionsView(e.api, n, view.Preconfirmed)
		if err := v.Load(ctx); err != nil {
			return err
		}
		v.SelectUser(userID)
		v.SelectMachine(machineID)
		return e.report(n, v.Grant(ctx))

	case "revoke":
		fs := e.flags("permissions revoke")
		yes := fs.Bool("yes", false, "do not ask for confirmation")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := wantArgs(fs.Args(), 2, "permissions revoke [-yes] <user-id> <machine-id>"); err != nil {
			return err
		}
		userID, machineID, err := parsePair(fs.Args())
		if err != nil {
			return err
		}
		v := view.NewPermissionsView(e.api, n, e.confirmer(*yes))
		return e.report(n, v.RevokeBinding(ctx, userID, machineID))

	default:
		return fmt.Errorf("%w: unknown permissions verb %q", errUsage, verb)
	}
}

func parsePair(args []string) (userID, machineID int64, err error) {
	if userID, err = parseID(args[0], "user"); err != nil {
		return 0, 0, err
	}
	if machineID, err = parseID(args[1], "machine"); err != nil {
		return 0, 0, err
	}
	return userID, machineID, nil
}
