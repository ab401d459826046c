package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/talentgraph/talentgraph-go/internal/cache"
	"github.com/talentgraph/talentgraph-go/internal/network"
	"github.com/talentgraph/talentgraph-go/internal/storage"
)

var (
	networkDepth  int
	networkDegree int
	networkLimit  int
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Graph queries over the people network",
}

var networkPathCmd = &cobra.Command{
	Use:   "path <source> <target>",
	Short: "Shortest connection between two people",
	Long: `BFS over coworker and collaborator edges. Results are cached for a
week; a cache hit is marked "cached": true. People can be given as a
UUID, LinkedIn URL, or GitHub username.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		ix, err := warmIndex(ctx, store)
		if err != nil {
			return err
		}
		source, err := resolvePersonArg(ix, args[0])
		if err != nil {
			return err
		}
		target, err := resolvePersonArg(ix, args[1])
		if err != nil {
			return err
		}

		redis := openCache(ctx)
		defer redis.Close()

		svc := network.NewService(store, redis)
		path, err := svc.ShortestPath(ctx, source, target, networkDepth)
		if err != nil {
			return err
		}
		if path == nil {
			fmt.Printf("No path within %d hops\n", networkDepth)
			return nil
		}
		return printJSON(path)
	},
}

var networkNeighborsCmd = &cobra.Command{
	Use:   "neighbors <person>",
	Short: "Neighborhood graph around a person",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		ix, err := warmIndex(ctx, store)
		if err != nil {
			return err
		}
		center, err := resolvePersonArg(ix, args[0])
		if err != nil {
			return err
		}

		redis := openCache(ctx)
		defer redis.Close()

		svc := network.NewService(store, redis)
		graph, err := svc.Neighborhood(ctx, center, networkDegree, networkLimit)
		if err != nil {
			return err
		}
		return printJSON(graph)
	},
}

var networkConnectorsCmd = &cobra.Command{
	Use:   "connectors <person> <person> [person...]",
	Short: "People bridging two to four centers",
	Args:  cobra.RangeArgs(2, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		ix, err := warmIndex(ctx, store)
		if err != nil {
			return err
		}
		centers := make([]uuid.UUID, 0, len(args))
		for _, arg := range args {
			id, err := resolvePersonArg(ix, arg)
			if err != nil {
				return err
			}
			centers = append(centers, id)
		}

		redis := openCache(ctx)
		defer redis.Close()

		svc := network.NewService(store, redis)
		connectors, err := svc.Connectors(ctx, centers)
		if err != nil {
			return err
		}
		if len(connectors) == 0 {
			fmt.Println("No connectors found")
			return nil
		}
		return printJSON(connectors)
	},
}

var networkHiringMonths int

var networkHiringCmd = &cobra.Command{
	Use:   "hiring <company>",
	Short: "Recent hires into a company and where they came from",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		companyID, err := resolveCompanyArg(ctx, store, args[0])
		if err != nil {
			return err
		}

		redis := openCache(ctx)
		defer redis.Close()

		since := time.Now().AddDate(0, -networkHiringMonths, 0)
		key := cache.Key("hiring", companyID.String(), fmt.Sprint(networkHiringMonths))

		var movements []storage.HiringMovement
		if !redis.Get(ctx, key, &movements) {
			movements, err = store.HiringMovements(ctx, companyID, since)
			if err != nil {
				return err
			}
			redis.Set(ctx, key, movements, cache.TTLHiring)
		}
		if len(movements) == 0 {
			fmt.Printf("No hires recorded in the last %d months\n", networkHiringMonths)
			return nil
		}
		return printJSON(movements)
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	networkPathCmd.Flags().IntVar(&networkDepth, "depth", network.DefaultMaxDepth, "maximum hops")
	networkNeighborsCmd.Flags().IntVar(&networkDegree, "degree", 1, "neighborhood degree (1 or 2)")
	networkNeighborsCmd.Flags().IntVar(&networkLimit, "limit", 50, "first-degree fan-out cap")
	networkHiringCmd.Flags().IntVar(&networkHiringMonths, "months", 12, "lookback window in months")
	networkCmd.AddCommand(networkPathCmd)
	networkCmd.AddCommand(networkNeighborsCmd)
	networkCmd.AddCommand(networkConnectorsCmd)
	networkCmd.AddCommand(networkHiringCmd)
}
