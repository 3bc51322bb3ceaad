package cli

import (
	"context"
	"fmt"

	"fleet-admin-console/internal/model"
	"fleet-admin-console/internal/view"
)

func (e *env) users(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: users needs a verb: list, create, role, delete", errUsage)
	}
	verb, args := args[0], args[1:]

	switch verb {
	case "list":
		n := e.notices()
		v := view.NewUsersView(e.api, n, view.Preconfirmed)
		if err := v.Load(ctx); err != nil {
			return err
		}
		w := e.table()
		fmt.Fprintln(w, "ID\tUSERNAME\tROLE\tCREATED")
		for _, u := range v.Snapshot().Items {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.Username, u.Role, u.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()

	case "create":
		fs := e.flags("users create")
		username := fs.String("username", "", "account name")
		password := fs.String("password", "", "initial password")
		role := fs.String("role", string(model.RoleUser), "admin or user")
		if err := fs.Parse(args); err != nil {
			return err
		}
		n := e.notices()
		v := view.NewUsersView(e.api, n, view.Preconfirmed)
		err := v.Create(ctx, model.CreateUserRequest{Username: *username, Password: *password, Role: model.Role(*role)})
		if form := v.Form(); err != nil && form.Error != "" {
			if _, shown := n.Current(); !shown {
				fmt.Fprintln(e.errOut, form.Error)
				return errReported
			}
		}
		return e.report(n, err)

	case "role":
		if err := wantArgs(args, 2, "users role <id> <admin|user>"); err != nil {
			return err
		}
		id, err := parseID(args[0], "user")
		if err != nil {
			return err
		}
		n := e.notices()
		v := view.NewUsersView(e.api, n, view.Preconfirmed)
		if err := v.Load(ctx); err != nil {
			return err
		}
		changed, err := v.UpdateRole(ctx, id, model.Role(args[1]))
		if err == nil && !changed {
			fmt.Fprintln(e.out, "Role unchanged.")
		}
		return e.report(n, err)

	case "delete":
		fs := e.flags("users delete")
		yes := fs.Bool("yes", false, "do not ask for confirmation")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := wantArgs(fs.Args(), 1, "users delete [-yes] <id>"); err != nil {
			return err
		}
		id, err := parseID(fs.Arg(0), "user")
		if err != nil {
			return err
		}
		n := e.notices()
		v := view.NewUsersView(e.api, n, e.confirmer(*yes))
		return e.report(n, v.Delete(ctx, id))

	default:
		return fmt.Errorf("%w: unknown users verb %q", errUsage, verb)
	}
}
