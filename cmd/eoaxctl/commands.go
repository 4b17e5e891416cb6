package main

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"text/tabwriter"

	"github.com/veesix-networks/eoax/internal/monitor"
	"github.com/veesix-networks/eoax/pkg/events"
)

func RegisterCommands(tree *CommandTree) {
	tree.AddRoot([]string{"show"}, "Display operational state")

	tree.AddCommand([]string{"show", "pairs"},
		"Display radio interfaces and their virtual Ethernet interfaces",
		cmdShowPairs,
		&Argument{Name: "detail", Description: "Include interface counters", Type: ArgKeyword},
	)

	tree.AddCommand([]string{"show", "drops"},
		"Display bridge drop counters",
		cmdShowDrops,
		&Argument{Name: "all", Description: "Include reasons with no drops", Type: ArgKeyword},
	)

	tree.AddCommand([]string{"show", "events"},
		"Display recent link and pair events",
		cmdShowEvents,
		&Argument{
			Name:        "topic",
			Description: "Only events published on this topic",
			Type:        ArgKeywordWithValue,
			Values:      []string{events.TopicLinkState, events.TopicPairLifecycle},
		},
		&Argument{Name: "limit", Description: "Only the newest events", Type: ArgKeywordWithValue},
	)

	tree.AddCommand([]string{"show", "interfaces"},
		"Display links in the managed namespace",
		cmdShowInterfaces,
	)

	tree.AddCommand([]string{"show", "status"},
		"Display monitor status",
		cmdShowStatus,
	)
}

// keywordArgs maps already validated keyword arguments to their values.
func keywordArgs(args []string, withValue ...string) map[string]string {
	takesValue := make(map[string]bool, len(withValue))
	for _, name := range withValue {
		takesValue[name] = true
	}

	out := make(map[string]string)
	for i := 0; i < len(args); i++ {
		if takesValue[args[i]] && i+1 < len(args) {
			out[args[i]] = args[i+1]
			i++
			continue
		}
		out[args[i]] = ""
	}
	return out
}

func cmdShowPairs(ctx context.Context, cli *CLI, args []string) error {
	var resp monitor.PairsResponse
	if err := cli.client.Show(ctx, "pairs", nil, &resp); err != nil {
		return fmt.Errorf("failed to get pairs: %w", err)
	}
	if cli.format != FormatCLI {
		return cli.printFormatted(resp)
	}

	if len(resp.Pairs) == 0 {
		fmt.Fprintln(cli.out, "No pairs")
		return nil
	}

	_, detail := keywordArgs(args)["detail"]

	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RADIO\tSTATION\tSTATE\tVIRTUAL\tMAC\tMTU\tSTATE")
	for _, p := range resp.Pairs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			p.Radio, orDash(p.RadioAddress), upDown(p.RadioUp),
			p.Virtual, p.VirtualMAC, p.VirtualMTU, upDown(p.VirtualUp))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if !detail {
		return nil
	}

	fmt.Fprintln(cli.out)
	w = tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTERFACE\tRX-PACKETS\tRX-BYTES\tRX-DROPPED\tRX-ERRORS\tTX-PACKETS\tTX-BYTES\tTX-DROPPED\tTX-ERRORS")
	for _, p := range resp.Pairs {
		rs, vs := p.RadioStats, p.VirtualStats
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%d\t%d\t%s\t%d\t%d\n", p.Radio,
			rs.RxPackets, humanBytes(rs.RxBytes), rs.RxDropped, rs.RxErrors,
			rs.TxPackets, humanBytes(rs.TxBytes), rs.TxDropped, rs.TxErrors)
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%d\t%d\t%s\t%d\t%d\n", p.Virtual,
			vs.RxPackets, humanBytes(vs.RxBytes), vs.RxDropped, vs.RxErrors,
			vs.TxPackets, humanBytes(vs.TxBytes), vs.TxDropped, vs.TxErrors)
	}
	return w.Flush()
}

func cmdShowDrops(ctx context.Context, cli *CLI, args []string) error {
	var resp monitor.DropsResponse
	if err := cli.client.Show(ctx, "drops", nil, &resp); err != nil {
		return fmt.Errorf("failed to get drops: %w", err)
	}
	if cli.format != FormatCLI {
		return cli.printFormatted(resp)
	}

	_, all := keywordArgs(args)["all"]

	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DIRECTION\tREASON\tCOUNT")
	for _, d := range resp.Drops {
		if d.Count == 0 && !all {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d\n", d.Direction, d.Reason, d.Count)
	}
	fmt.Fprintf(w, "ax25\tunknown-pid\t%d\n", resp.Mux.UnknownPID)
	fmt.Fprintf(w, "ax25\tmalformed\t%d\n", resp.Mux.Malformed)
	return w.Flush()
}

func cmdShowEvents(ctx context.Context, cli *CLI, args []string) error {
	kw := keywordArgs(args, "topic", "limit")
	query := url.Values{}
	if topic := kw["topic"]; topic != "" {
		query.Set("topic", topic)
	}
	if limit, ok := kw["limit"]; ok {
		if n, err := strconv.Atoi(limit); err != nil || n < 1 {
			return fmt.Errorf("limit must be a positive integer")
		}
		query.Set("limit", limit)
	}

	var resp monitor.EventsResponse
	if err := cli.client.Show(ctx, "events", query, &resp); err != nil {
		return fmt.Errorf("failed to get events: %w", err)
	}
	if cli.format != FormatCLI {
		return cli.printFormatted(resp)
	}

	if len(resp.Events) == 0 {
		fmt.Fprintln(cli.out, "No events")
		return nil
	}

	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTOPIC\tSOURCE\tDETAIL")
	for _, ev := range resp.Events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			ev.Timestamp.Local().Format("2006-01-02 15:04:05"), ev.Type, orDash(ev.Source), eventDetail(ev.Data))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "\nPublished: %d  Dropped: %d\n", resp.Bus.Published, resp.Bus.Dropped)
	return nil
}

// eventDetail summarises a decoded event payload.
func eventDetail(data any) string {
	m, ok := data.(map[string]any)
	if !ok {
		return "-"
	}
	if link, ok := m["link"].(map[string]any); ok {
		return fmt.Sprintf("%v %v (%v, index %v)", link["name"], link["kind"], link["type"], link["index"])
	}
	if state, ok := m["state"]; ok {
		detail := fmt.Sprintf("%v %v", m["radio"], state)
		if v, ok := m["virtual"]; ok {
			detail += fmt.Sprintf(" -> %v", v)
		}
		if e, ok := m["error"]; ok {
			detail += fmt.Sprintf(": %v", e)
		}
		return detail
	}
	return "-"
}

func cmdShowInterfaces(ctx context.Context, cli *CLI, args []string) error {
	var resp []monitor.InterfaceInfo
	if err := cli.client.Show(ctx, "interfaces", nil, &resp); err != nil {
		return fmt.Errorf("failed to get interfaces: %w", err)
	}
	if cli.format != FormatCLI {
		return cli.printFormatted(resp)
	}

	if len(resp) == 0 {
		fmt.Fprintln(cli.out, "No interfaces")
		return nil
	}

	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tNAME\tTYPE\tSTATE\tMTU\tADDRESS\tPAIRED")
	for _, i := range resp {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
			i.Index, i.Name, i.Type, upDown(i.AdminUp), i.MTU, orDash(i.MAC), orDash(i.Paired))
	}
	return w.Flush()
}

func cmdShowStatus(ctx context.Context, cli *CLI, args []string) error {
	var resp monitor.Status
	if err := cli.client.Show(ctx, "status", nil, &resp); err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	if cli.format != FormatCLI {
		return cli.printFormatted(resp)
	}

	fmt.Fprintf(cli.out, "Server:     %s\n", cli.client.Server())
	fmt.Fprintf(cli.out, "State:      %s\n", resp.State)
	fmt.Fprintf(cli.out, "Listen:     %s\n", resp.ListenAddress)
	fmt.Fprintf(cli.out, "Collectors: %v\n", resp.Collectors)
	return nil
}
