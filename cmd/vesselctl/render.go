package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/domain"
)

func diffRows(diff domain.DeploymentDiff) [][]string {
	var rows [][]string
	add := func(op domain.Operation, handles []string) {
		for _, h := range handles {
			rows = append(rows, []string{string(op), h})
		}
	}
	add(domain.OperationCreate, diff.ToCreate)
	add(domain.OperationUpdate, diff.ToUpdate)
	add(domain.OperationDisable, diff.ToDisable)
	add(domain.OperationDelete, diff.ToDelete)
	return rows
}

func printDiff(w io.Writer, diff domain.DeploymentDiff) {
	for _, warning := range diff.Warnings {
		fmt.Fprintln(w, warnMsg("%s", warning))
	}
	if diff.Empty() {
		fmt.Fprintln(w, successMsg("catalog is up to date"))
		return
	}
	fmt.Fprintln(w, renderTable([]string{"Operation", "Vessel"}, diffRows(diff)))
	fmt.Fprintln(w, infoMsg("%s", diff.Summary))
	if len(diff.ToDelete) > 0 {
		fmt.Fprintln(w, warnMsg("%d vessel(s) will be permanently deleted: %s", len(diff.ToDelete), strings.Join(diff.ToDelete, ", ")))
	}
}

func progressLine(p domain.DeploymentProgress) string {
	switch p.Kind {
	case domain.ProgressError:
		return errorMsg("%s", p.Message)
	case domain.ProgressInfo:
		return muted(p.Message)
	default:
		return successMsg("%s", p.Message)
	}
}

func printResult(w io.Writer, res domain.DeploymentResult) {
	for _, e := range res.Errors {
		fmt.Fprintln(w, errorMsg("%s", e))
	}
	failed := 0
	for _, r := range res.Results {
		if !r.OK() {
			failed++
		}
	}
	took := res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond)
	if res.Success {
		fmt.Fprintln(w, successMsg("run %s finished: %d operation(s) in %s", res.RunID, len(res.Results), took))
		return
	}
	fmt.Fprintln(w, errorMsg("run %s finished with errors: %d of %d operation(s) failed", res.RunID, failed, len(res.Results)))
}

func vesselRows(vessels []domain.RemoteProduct) [][]string {
	rows := make([][]string, 0, len(vessels))
	for _, v := range vessels {
		state := "enabled"
		if !v.Enabled {
			state = "disabled"
		}
		rows = append(rows, []string{v.Handle, v.Title, state, strconv.Itoa(len(v.Variants)), v.ID})
	}
	return rows
}

// confirmed reads one answer line; only y or yes proceeds
func confirmed(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
