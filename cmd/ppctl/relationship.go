package main

import (
	"fmt"

	"github.com/portalcraft/pagesapi/portal/syntax"

	"github.com/urfave/cli/v2"
)

const relationshipArgsUsage = `<entity-set> <record-id> <relationship> <target-entity-set> <target-record-id>`

var cmdAssociate = &cli.Command{
	Name:      "associate",
	Usage:     "link two records through a relationship",
	ArgsUsage: relationshipArgsUsage,
	Action:    runAssociate,
}

var cmdDisassociate = &cli.Command{
	Name:      "disassociate",
	Usage:     "remove a relationship link between two records",
	ArgsUsage: relationshipArgsUsage,
	Action:    runDisassociate,
}

type relationshipArgs struct {
	Source       syntax.EntitySet
	SourceID     syntax.RecordID
	Relationship syntax.LogicalName
	Target       syntax.EntitySet
	TargetID     syntax.RecordID
}

func parseRelationshipArgs(cctx *cli.Context) (*relationshipArgs, error) {
	if cctx.Args().Len() != 5 {
		return nil, fmt.Errorf("expected arguments: %s", relationshipArgsUsage)
	}
	src, srcID, err := recordArgs(cctx)
	if err != nil {
		return nil, err
	}
	rel, err := logicalNameArg(cctx, 2, "relationship")
	if err != nil {
		return nil, err
	}
	tgt, err := syntax.ParseEntitySet(cctx.Args().Get(3))
	if err != nil {
		return nil, err
	}
	tgtID, err := syntax.ParseRecordID(cctx.Args().Get(4))
	if err != nil {
		return nil, err
	}
	return &relationshipArgs{
		Source:       src,
		SourceID:     srcID,
		Relationship: rel,
		Target:       tgt,
		TargetID:     tgtID,
	}, nil
}

func runAssociate(cctx *cli.Context) error {
	return runRelationship(cctx, true)
}

func runDisassociate(cctx *cli.Context) error {
	return runRelationship(cctx, false)
}

func runRelationship(cctx *cli.Context, link bool) error {
	ctx := cctx.Context
	args, err := parseRelationshipArgs(cctx)
	if err != nil {
		return err
	}

	c, err := loadPortalClient(cctx)
	if err != nil {
		return err
	}
	op := c.DisassociateEntity
	if link {
		op = c.AssociateEntity
	}
	return op(ctx, args.Source, args.SourceID, args.Relationship, args.Target, args.TargetID)
}
