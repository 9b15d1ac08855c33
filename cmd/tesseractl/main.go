package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/fedkit/tesserae/federation"
	"github.com/fedkit/tesserae/store"
	"github.com/fedkit/tesserae/util"
	"github.com/urfave/cli/v3"
)

func openStore(conf *util.AppConfig) (*store.DB, error) {
	return store.Open(conf.Conf.DatabasePath, conf.Conf.InstanceDomain)
}

func main() {
	app := &cli.Command{
		Name:  "tesseractl",
		Usage: "Admin CLI for a tesserae instance",
		Commands: []*cli.Command{
			{
				Name:  "create-actor",
				Usage: "Create a new local actor",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
					&cli.StringFlag{Name: "display-name"},
					&cli.StringFlag{Name: "summary"},
				},
				Action: createActorAction,
			},
			{
				Name:   "show-instance-actor",
				Usage:  "Print the server-level instance actor",
				Action: showInstanceActorAction,
			},
			{
				Name:   "retry-sweep",
				Usage:  "Run one pass of the outbound delivery retry queue",
				Action: retrySweepAction,
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("tesseractl: %v", err)
	}
}

func createActorAction(ctx context.Context, cmd *cli.Command) error {
	conf, err := util.ReadConf()
	if err != nil {
		return err
	}
	db, err := openStore(conf)
	if err != nil {
		return err
	}

	actorID, err := db.CreateLocalActor(conf.Conf.InstanceDomain, federation.NewLocalActor{
		PreferredUsername: cmd.String("username"),
		Password:          cmd.String("password"),
		DisplayName:       cmd.String("display-name"),
		Summary:           cmd.String("summary"),
	})
	if err != nil {
		return fmt.Errorf("create actor: %w", err)
	}
	fmt.Printf("created actor %s\n", actorID)
	return nil
}

func showInstanceActorAction(ctx context.Context, cmd *cli.Command) error {
	conf, err := util.ReadConf()
	if err != nil {
		return err
	}
	db, err := openStore(conf)
	if err != nil {
		return err
	}
	instance, err := db.GetInstanceActor()
	if err != nil {
		return fmt.Errorf("instance actor: %w", err)
	}
	fmt.Printf("domain: %s\nname: %s\ndescription: %s\n", instance.Domain, instance.Name, instance.Description)
	return nil
}

func retrySweepAction(ctx context.Context, cmd *cli.Command) error {
	conf, err := util.ReadConf()
	if err != nil {
		return err
	}
	db, err := openStore(conf)
	if err != nil {
		return err
	}
	instance, err := db.GetInstanceActor()
	if err != nil {
		return fmt.Errorf("instance actor: %w", err)
	}

	keyCache := federation.NewKeyCache()
	deliverer := federation.NewDeliverer(federation.DefaultHTTPTransport, instance, db, keyCache)
	if err := deliverer.ProcessPendingDeliveries(50); err != nil {
		return fmt.Errorf("retry sweep: %w", err)
	}
	fmt.Println("retry sweep complete")
	return nil
}
